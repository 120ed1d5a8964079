package session

import "strings"

// Rejection is how a peer error message is presented.
type Rejection int

const (
	// RejectBlocking shows the message and waits for acknowledgement.
	RejectBlocking Rejection = iota
	// RejectNavigate leaves the game screen and forgets the lobby.
	RejectNavigate
	// RejectToast shows a short self-dismissing notice.
	RejectToast
	// RejectSilent drops the message.
	RejectSilent
)

func (r Rejection) String() string {
	switch r {
	case RejectNavigate:
		return "navigate"
	case RejectToast:
		return "toast"
	case RejectSilent:
		return "silent"
	}
	return "blocking"
}

// Classify maps a peer error message to its presentation. The checks run in
// a fixed order: a missing lobby wins over everything else.
func Classify(msg string) Rejection {
	switch {
	case strings.Contains(msg, "lobby not found"):
		return RejectNavigate
	case strings.Contains(strings.ToLower(msg), "dash"):
		return RejectToast
	case strings.Contains(msg, "invalid move"):
		return RejectSilent
	}
	return RejectBlocking
}
