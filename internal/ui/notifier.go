package ui

import (
	"fyne.io/fyne/v2"
)

// Notifier surfaces outcomes of background operations to the user.
// The controller depends on this interface so its logic can be tested
// without a display.
type Notifier interface {
	// Success announces a completed operation
	Success(message string)

	// Failure announces a failed operation with a user-facing message
	Failure(message string)
}

// ToastNotifier implements Notifier with desktop notifications.
type ToastNotifier struct {
	app fyne.App
}

// NewToastNotifier creates a notifier bound to the running application.
func NewToastNotifier(app fyne.App) *ToastNotifier {
	return &ToastNotifier{app: app}
}

// Success announces a completed operation
func (n *ToastNotifier) Success(message string) {
	n.app.SendNotification(fyne.NewNotification("Image Host", message))
}

// Failure announces a failed operation
func (n *ToastNotifier) Failure(message string) {
	n.app.SendNotification(fyne.NewNotification("Image Host - Error", message))
}
