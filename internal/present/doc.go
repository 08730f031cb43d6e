// Package present turns extraction results into display-ready views.
//
// Build is the single place where the reserved error key is honoured: a map
// carrying it renders as the message alone and is never classified. Other
// maps are classified and only non-empty sections are kept. RenderText draws
// go-pretty tables; RenderJSON emits the same view as JSON.
package present
