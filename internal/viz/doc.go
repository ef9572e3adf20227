// Package viz renders rollouts as terminal text.
//
//   - [Canvas]: Braille-based pixel canvas for phase portraits
//   - [RenderResult]: one rollout with its metrics
//   - [RenderComparison]: learned against reference, with a deviation plot
//
// Output is plain strings styled with lipgloss, so callers decide where it
// goes.
package viz
