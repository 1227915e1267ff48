package views

import "continuity/internal/validation"

// SwitchToReportMsg returns to the report view
type SwitchToReportMsg struct{}

// SwitchToGraphMsg opens the character timeline view
type SwitchToGraphMsg struct{}

// SwitchToHelpMsg opens the help view
type SwitchToHelpMsg struct{}

// OpenEditorMsg asks the app to open a file in the external editor
type OpenEditorMsg struct {
	Path string
}

// RevalidateMsg asks the app to run the report's checker again
type RevalidateMsg struct{}

// ReportReadyMsg carries a freshly produced report
type ReportReadyMsg struct {
	Report *validation.Report
	Err    error
}
