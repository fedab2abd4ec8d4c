package http

// ownerGate restricts processing to an allow-list of Slack user IDs. A nil
// or empty gate allows everyone.
type ownerGate map[string]struct{}

func newOwnerGate(ids []string) ownerGate {
	if len(ids) == 0 {
		return nil
	}

	g := make(ownerGate, len(ids))
	for _, id := range ids {
		if id != "" {
			g[id] = struct{}{}
		}
	}
	return g
}

func (g ownerGate) allows(id string) bool {
	if len(g) == 0 {
		return true
	}
	_, ok := g[id]
	return ok
}
