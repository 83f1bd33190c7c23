package flash

// Kinds of status banner.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Targets name the banner slots on each page.
const (
	TargetAdmin   = "admin-message"
	TargetLogin   = "login-message"
	TargetExpert  = "expert-message"
	TargetBooking = "booking-message"
	TargetCancel  = "cancel-message"
)

// Message is a transient status banner rendered into one target slot.
type Message struct {
	Target string
	Text   string
	Kind   string
}

// Set holds at most one message per target.
// A message replaces the previous one for the same target; an empty text clears it.
type Set map[string]Message

// Put replaces the banner for target, or clears it when text is empty.
// PRE: target is non-empty
// POST: Set holds text for target, or nothing if text is empty
func (s Set) Put(target, text, kind string) {
	if text == "" {
		delete(s, target)
		return
	}
	if kind != KindError {
		kind = KindSuccess
	}
	s[target] = Message{Target: target, Text: text, Kind: kind}
}

// Success is shorthand for Put with KindSuccess.
func (s Set) Success(target, text string) { s.Put(target, text, KindSuccess) }

// Error is shorthand for Put with KindError.
func (s Set) Error(target, text string) { s.Put(target, text, KindError) }

// Clear removes the banner for target.
func (s Set) Clear(target string) { delete(s, target) }

// Get returns the banner for target, if any.
func (s Set) Get(target string) (Message, bool) {
	m, ok := s[target]
	return m, ok
}
