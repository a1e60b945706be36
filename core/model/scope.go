package model

// Scope is a set of EVSEs addressed by a single synchronization call. The
// registry exposes EVSEs grouped by station, pool, operator or the whole
// network; every grouping is flattened into plain EVSEs before it reaches
// the queues.
type Scope interface {
	EVSEs() []EVSE
}

// Single addresses one EVSE.
type Single EVSE

func (s Single) EVSEs() []EVSE { return []EVSE{EVSE(s)} }

// Collection addresses an arbitrary list of EVSEs.
type Collection []EVSE

func (c Collection) EVSEs() []EVSE { return []EVSE(c) }

// Station groups the EVSEs installed at one location.
type Station struct {
	ID     string
	Points []EVSE
}

func (s Station) EVSEs() []EVSE { return s.Points }

// Pool groups stations operated together.
type Pool struct {
	ID       string
	Stations []Station
}

func (p Pool) EVSEs() []EVSE {
	var out []EVSE
	for _, s := range p.Stations {
		out = append(out, s.EVSEs()...)
	}
	return out
}

// Operator groups the pools of one charge point operator.
type Operator struct {
	ID    string
	Pools []Pool
}

func (o Operator) EVSEs() []EVSE {
	var out []EVSE
	for _, p := range o.Pools {
		out = append(out, p.EVSEs()...)
	}
	return out
}

// Network groups operators sharing one roaming account.
type Network struct {
	ID        string
	Operators []Operator
}

func (n Network) EVSEs() []EVSE {
	var out []EVSE
	for _, o := range n.Operators {
		out = append(out, o.EVSEs()...)
	}
	return out
}

// Flatten returns the EVSEs of the scope with duplicates removed. The first
// occurrence of an identity wins and the original order is kept. A nil
// scope yields nil.
func Flatten(s Scope) []EVSE {
	if s == nil {
		return nil
	}
	all := s.EVSEs()
	seen := make(map[EVSEID]struct{}, len(all))
	out := make([]EVSE, 0, len(all))
	for _, e := range all {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
