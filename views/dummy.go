package views

// DummyName is the route of the fallback screen
const DummyName = "DUMMY"

// Dummy renders nothing and keeps the user where they were
type Dummy struct{}

func (Dummy) Options() Options {
	opts := DefaultOptions()
	opts.EditKeyboard = false
	opts.KeepState = true
	opts.KeepRoute = true
	return opts
}
