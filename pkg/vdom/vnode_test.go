package vdom

import "testing"

func TestVKindString(t *testing.T) {
	tests := []struct {
		kind VKind
		want string
	}{
		{KindElement, "Element"},
		{KindText, "Text"},
		{KindFragment, "Fragment"},
		{KindComponent, "Component"},
		{KindRaw, "Raw"},
		{KindSuspense, "Suspense"},
		{VKind(255), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("VKind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVNodeIsInteractive(t *testing.T) {
	tests := []struct {
		name string
		node *VNode
		want bool
	}{
		{"nil node", nil, false},
		{"text node", Text("hello"), false},
		{"element without handlers", Div(Class("test")), false},
		{"element with onclick", Button(OnClick(func() {})), true},
		{"element with oninput", Input(OnInput(func(string) {})), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.IsInteractive(); got != tt.want {
				t.Errorf("IsInteractive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateElement(t *testing.T) {
	node := Div(
		ID("main"),
		[]Attr{Class("a", "b"), Key("row-1")},
		nil,
		ClassIf(false, "hidden"),
		"hello",
		P(Text("child")),
		[]*VNode{Span(), nil},
		Func(func() *VNode { return Text("comp") }),
	)

	if node.Tag != "div" || node.Kind != KindElement {
		t.Fatalf("unexpected node %v %q", node.Kind, node.Tag)
	}
	if node.Props["id"] != "main" {
		t.Errorf("id = %v, want main", node.Props["id"])
	}
	if node.Props["class"] != "a b" {
		t.Errorf("class = %v, want %q", node.Props["class"], "a b")
	}
	if node.Key != "row-1" {
		t.Errorf("Key = %q, want row-1", node.Key)
	}
	if _, ok := node.Props["key"]; ok {
		t.Error("key should not be rendered as a prop")
	}
	if len(node.Children) != 4 {
		t.Fatalf("len(Children) = %d, want 4", len(node.Children))
	}
	if node.Children[3].Kind != KindComponent {
		t.Errorf("last child kind = %v, want Component", node.Children[3].Kind)
	}
}

func TestInvoke(t *testing.T) {
	var got string
	clicks := 0

	if !Invoke(func() { clicks++ }, "") {
		t.Error("func() handler should be invoked")
	}
	if !Invoke(func(v string) { got = v }, "typed") {
		t.Error("func(string) handler should be invoked")
	}
	if Invoke(42, "") {
		t.Error("non-func handler should report false")
	}

	if clicks != 1 || got != "typed" {
		t.Errorf("clicks = %d, got = %q", clicks, got)
	}
}

func TestHandler(t *testing.T) {
	btn := Button(OnClick(func() {}))
	if _, ok := btn.Handler("click"); !ok {
		t.Error("expected click handler")
	}
	if _, ok := btn.Handler("input"); ok {
		t.Error("unexpected input handler")
	}
	var nilNode *VNode
	if _, ok := nilNode.Handler("click"); ok {
		t.Error("nil node has no handlers")
	}
}
