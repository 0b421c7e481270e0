// Package prompt abstracts the modal alert/dialog surface so the core flows
// never touch the terminal directly and tests can script every interaction.
package prompt

// Reporter shows one-way notices. Calls never block the reporting flow.
type Reporter interface {
	Info(title, text string)
	Success(title, text string)
	Warn(title, text string)
	Error(title, text string)
}

// Prompter gathers a value from the user. Calls block the calling flow until
// the user answers or dismisses the dialog; other flows keep running.
type Prompter interface {
	// Input shows a single text field. ok is false when dismissed.
	Input(title, text, initial string) (value string, ok bool)
	// Confirm shows a yes/no dialog.
	Confirm(title, text string) bool
}

// Surface is the full alert/dialog capability set the UI provides.
type Surface interface {
	Reporter
	Prompter
}
