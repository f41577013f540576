package notify

import (
	"fmt"
	"sync/atomic"
)

// Console backs every presenter surface with stdout. It stands in until a
// real shell embeds the client.
type Console struct {
	visible atomic.Bool
}

// NewConsole returns a Console that starts visible.
func NewConsole() *Console {
	c := &Console{}
	c.visible.Store(true)
	return c
}

// RequestPermission always grants; the console has no permission model.
func (c *Console) RequestPermission() (bool, error) { return true, nil }

// Notify prints the notification.
func (c *Console) Notify(n Notification) error {
	fmt.Printf("[notification] %s: %s (%s)\n", n.Title, n.Body, n.TargetURL)
	return nil
}

// Toast prints the toast.
func (c *Console) Toast(severity, message string) {
	fmt.Printf("[%s] %s\n", severity, message)
}

// Visible reports whether the console counts as the foreground surface.
func (c *Console) Visible() bool { return c.visible.Load() }

// SetVisible flips foreground state, for embedding shells.
func (c *Console) SetVisible(visible bool) { c.visible.Store(visible) }

// Focus brings the console forward.
func (c *Console) Focus() { c.visible.Store(true) }

// Navigate prints the route change.
func (c *Console) Navigate(url string) {
	fmt.Printf("[navigate] %s\n", url)
}
