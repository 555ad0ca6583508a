/*
Package tui implements the terminal progress view shown while a pipeline runs.

The view follows the Bubble Tea Model-Update-View pattern. It never touches
the pipeline's goroutines directly: every PollInterval it samples
Runner.Snapshot, and it quits once the snapshot reports the report written.
Pressing q, esc or ctrl+c calls Runner.Stop; the view keeps polling until
the collector has finalized so the partial report is never cut short.
*/
package tui
