// Package ussd holds the pure session state machine. The gateway replays the
// full input path ("1*2*1") on every request, so resolving a path must be
// free of side effects: the service layer walks the tokens through Transition
// and acts only on the final state.
package ussd

import (
	"strconv"
	"strings"
)

// CatalogIndex is a 1-based position in the displayed stock menu.
type CatalogIndex int

// SubscriptionIndex is a 1-based position in the subscriber's own stock list.
type SubscriptionIndex int

type State int

const (
	StateMainMenu State = iota
	StateSubscribeStockList  // stock menu inside the subscribe flow ("1")
	StateStockSubscribed     // a stock was picked inside the subscribe flow
	StateViewStocksList      // "2"
	StateViewStockDetail     // "2*<n>", terminal
	StateMySubscriptions     // "3"
	StateManageSubscriptions // "3*1"
	StateAddStockList        // "3*1*add"
	StateStockAdded          // "3*1*add*<n>"
	StateRemoveSubscription  // "3*1*<k>"
	StateNotificationPrefs   // "3*2"
	StateTogglePreference    // "3*2*<1|2>"
	StateUnsubscribed        // "4", terminal
	StateInvalid             // terminal
)

// PrefOpen/PrefClose select which flag StateTogglePreference flips.
const (
	PrefNone = iota
	PrefOpen
	PrefClose
)

// Env carries the data bounds tokens are validated against. CatalogSize is
// the number of entries actually shown on the stock menu (after the display
// cap), SubscriptionSize the length of the subscriber's current list.
type Env struct {
	CatalogSize      int
	SubscriptionSize int
}

// Session is the resolved position in the menu tree. Catalog/Subscription
// are set only when the state selects into the respective list. BadInput
// means the last token failed to parse or was out of range and the current
// menu should be re-rendered with an inline error.
type Session struct {
	State        State
	Catalog      CatalogIndex
	Subscription SubscriptionIndex
	Pref         int
	BadInput     bool
}

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	switch s {
	case StateViewStockDetail, StateUnsubscribed, StateInvalid:
		return true
	}
	return false
}

// Resolve walks every token of the path through Transition, starting from
// the main menu. An empty path is the main menu itself.
func Resolve(path string, env Env) Session {
	s := Session{State: StateMainMenu}
	if path == "" {
		return s
	}
	for _, token := range strings.Split(path, "*") {
		s = Transition(s, token, env)
	}
	return s
}

// Transition applies one token. It is total: every (state, token) pair
// yields a state, either the next menu, a BadInput re-render of the current
// one, or StateInvalid.
func Transition(s Session, token string, env Env) Session {
	if s.State.Terminal() {
		return Session{State: StateInvalid}
	}

	s.BadInput = false

	switch s.State {
	case StateMainMenu:
		switch token {
		case "1":
			return Session{State: StateSubscribeStockList}
		case "2":
			return Session{State: StateViewStocksList}
		case "3":
			return Session{State: StateMySubscriptions}
		case "4":
			return Session{State: StateUnsubscribed}
		}
		return Session{State: StateInvalid}

	case StateSubscribeStockList:
		if token == "0" {
			return Session{State: StateMainMenu}
		}
		if n, ok := parseIndex(token, env.CatalogSize); ok {
			return Session{State: StateStockSubscribed, Catalog: CatalogIndex(n)}
		}
		return stay(s)

	case StateStockSubscribed:
		switch token {
		case "1":
			return Session{State: StateSubscribeStockList}
		case "0":
			return Session{State: StateMainMenu}
		}
		return stay(s)

	case StateViewStocksList:
		if token == "0" {
			return Session{State: StateMainMenu}
		}
		if n, ok := parseIndex(token, env.CatalogSize); ok {
			return Session{State: StateViewStockDetail, Catalog: CatalogIndex(n)}
		}
		return stay(s)

	case StateMySubscriptions:
		switch token {
		case "1":
			return Session{State: StateManageSubscriptions}
		case "2":
			return Session{State: StateNotificationPrefs}
		case "0":
			return Session{State: StateMainMenu}
		}
		return stay(s)

	case StateManageSubscriptions:
		if strings.EqualFold(token, "add") {
			return Session{State: StateAddStockList}
		}
		if token == "0" {
			return Session{State: StateMySubscriptions}
		}
		if k, ok := parseIndex(token, env.SubscriptionSize); ok {
			return Session{State: StateRemoveSubscription, Subscription: SubscriptionIndex(k)}
		}
		return stay(s)

	case StateAddStockList:
		if token == "0" {
			return Session{State: StateManageSubscriptions}
		}
		if n, ok := parseIndex(token, env.CatalogSize); ok {
			return Session{State: StateStockAdded, Catalog: CatalogIndex(n)}
		}
		return stay(s)

	case StateStockAdded:
		switch token {
		case "1":
			return Session{State: StateAddStockList}
		case "0":
			return Session{State: StateManageSubscriptions}
		}
		return stay(s)

	case StateRemoveSubscription:
		switch token {
		case "1":
			return Session{State: StateManageSubscriptions}
		case "2":
			return Session{State: StateNotificationPrefs}
		case "0":
			return Session{State: StateMySubscriptions}
		}
		return stay(s)

	case StateNotificationPrefs, StateTogglePreference:
		switch token {
		case "1":
			return Session{State: StateTogglePreference, Pref: PrefOpen}
		case "2":
			return Session{State: StateTogglePreference, Pref: PrefClose}
		case "0":
			return Session{State: StateMySubscriptions}
		}
		return stay(s)
	}

	return Session{State: StateInvalid}
}

func stay(s Session) Session {
	s.BadInput = true
	return s
}

// parseIndex accepts a 1-based index within [1, size].
func parseIndex(token string, size int) (int, bool) {
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 || n > size {
		return 0, false
	}
	return n, true
}
