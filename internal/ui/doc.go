// Package ui is kadai's Bubble Tea front end.
//
// The Model wraps a nav.Machine, which owns the screen stack and the menu
// search state, and renders whatever is on top of it: a menu, a confirm
// prompt, the streamed output of a running action, or the share workflow.
//
// # Runs and screens
//
// After every transition the model reconciles processes with the stack.
// Leaving an output or share screen kills the process it started; arriving
// on an output screen starts the action. Runner events are delivered by
// re-armed commands tagged with the screen's Seq, so events from a run whose
// screen is gone are dropped. Component actions take over the terminal via
// tea.ExecProcess; fullscreen actions switch to the alternate screen for as
// long as their output screen is on top.
//
// # Data flow
//
// Background work (local rescans and source syncs) writes into a
// state.Store. The model subscribes to it and swaps the action list into
// the machine without touching the stack.
//
// # Keys
//
// Keys are translated into nav.Key values. The UI itself handles only
// ctrl+c, help, theme and description toggles, output scrolling and copying;
// everything else is interpreted by nav or share.
package ui
