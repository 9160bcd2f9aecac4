// Package render turns views containing suspense boundaries into HTML.
//
// One walker serves four drivers:
//
//   - Renderer.RenderToString renders a single pass. Boundaries whose
//     resources are still pending render their fallback.
//   - Renderer.RenderResolved renders, awaits every pending boundary and
//     renders again until the document is complete.
//   - Renderer.StreamOutOfOrder sends the document with fallbacks first,
//     then one chunk per boundary in the order the boundaries resolve.
//   - Renderer.StreamInOrder sends bytes strictly in document order,
//     blocking at each pending boundary.
//
// Renderer.Mount drives the client-interactive mode: a LiveView keeps the
// document mounted and emits a Patch whenever a boundary flips between
// fallback and content.
//
// # Markup
//
// Every element carries its hydration key:
//
//	<div data-hk="0-0">
//
// Every boundary is wrapped in comment markers:
//
//	<!--s:0-1--> ... <!--/s:0-1-->
//
// Content of boundary 0-1 is keyed in fragment "0-1", its fallback in
// fragment "0-1f". The key allocator continues after the boundary key once
// the boundary is emitted, so keys outside a boundary never depend on
// whether the boundary showed content or fallback.
//
// # Out-of-order chunks
//
// A resolved boundary is sent as
//
//	<template data-suspense="0-1">...</template><script>__suspense.resolve("0-1")</script>
//
// and the bootstrap script written by RenderPage swaps the template content
// in between the boundary markers.
//
// # Security
//
// All text content is escaped by default. Raw HTML can be inserted using
// KindRaw nodes, but should only be used with trusted content.
package render
