package domain

// ResolveStatus is the outcome of resolving a slug
type ResolveStatus int

const (
	ResolveNotFound ResolveStatus = iota
	ResolveFound
	ResolveExpired
)

func (s ResolveStatus) String() string {
	switch s {
	case ResolveFound:
		return "found"
	case ResolveExpired:
		return "expired"
	default:
		return "not_found"
	}
}

// Resolution is the typed result of a redirect lookup
type Resolution struct {
	Status    ResolveStatus
	TargetURL string
	FromCache bool
}

// Found builds a successful resolution
func Found(target string, fromCache bool) Resolution {
	return Resolution{Status: ResolveFound, TargetURL: target, FromCache: fromCache}
}

// NotFound builds a not-found resolution
func NotFound(fromCache bool) Resolution {
	return Resolution{Status: ResolveNotFound, FromCache: fromCache}
}

// Expired builds an expired resolution
func Expired(fromCache bool) Resolution {
	return Resolution{Status: ResolveExpired, FromCache: fromCache}
}
