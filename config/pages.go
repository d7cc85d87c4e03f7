package config

// Page identifies which screen the conversation view controller shows
type Page int

const (
	PageHome Page = iota
	PageRegister
	PageChat
	PageNetworkWarning
)

func (p Page) String() string {
	switch p {
	case PageHome:
		return "home"
	case PageRegister:
		return "register"
	case PageChat:
		return "chat"
	case PageNetworkWarning:
		return "network-warning"
	default:
		return "unknown"
	}
}
