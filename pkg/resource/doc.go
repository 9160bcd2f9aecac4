// Package resource provides keyed asynchronous values that cooperate with
// suspense boundaries.
//
// A Resource derives a key from a reactive source function and runs an async
// fetch for it. Whenever the key changes the resource returns to Pending and
// fetches again; results of an outdated fetch are dropped.
//
// Resources register with the ambient suspense context when they are created
// and whenever they are read, so a boundary learns how many resources are
// pending beneath it without enumerating them:
//
//	user := resource.New(
//	    func() int { return userID.Get() },
//	    func(ctx context.Context, id int) (*User, error) {
//	        return db.Users.Find(ctx, id)
//	    },
//	)
//
//	return user.Match(
//	    resource.OnPending[*User](func() *vdom.VNode { return Loading() }),
//	    resource.OnError[*User](func(err error) *vdom.VNode { return Error(err) }),
//	    resource.OnReady(func(u *User) *vdom.VNode { return UserProfile(u) }),
//	)
//
// Read never blocks. A failed fetch still resolves the resource, with the
// error carried in Result.Err.
package resource
