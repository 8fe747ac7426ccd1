package summary

import (
	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/models"
)

// accumulator folds records into every grouping of a summary at once.
type accumulator struct {
	s           *models.EmissionSummary
	departments map[GroupKey]map[string]struct{}
	locations   map[GroupKey]map[string]struct{}
	unscoped    []string
}

func newAccumulator(s *models.EmissionSummary) *accumulator {
	return &accumulator{
		s:           s,
		departments: map[GroupKey]map[string]struct{}{},
		locations:   map[GroupKey]map[string]struct{}{},
	}
}

// recordContext is the flowchart context of one record.
type recordContext struct {
	scope      emission.ScopeType
	scoped     bool
	category   GroupKey
	activity   GroupKey
	node       GroupKey
	label      string
	department GroupKey
	location   GroupKey
	factor     GroupKey
}

func resolveContext(r *models.ActivityRecord, chart *models.Flowchart) recordContext {
	rc := recordContext{node: NewGroupKey(r.NodeID), label: r.NodeID}
	rc.department, rc.location = UnknownKey, UnknownKey

	var cfg *emission.ScopeConfig
	if node, ok := chart.Node(r.NodeID); ok {
		if node.Label != "" {
			rc.label = node.Label
		}
		rc.department = NewGroupKey(node.Department)
		rc.location = NewGroupKey(node.Location)
		cfg, _ = node.Scope(r.ScopeIdentifier)
	}

	scopeRaw := string(r.ScopeType)
	factor := string(r.EmissionFactor)
	var category, activity string
	if cfg != nil {
		if scopeRaw == "" {
			scopeRaw = string(cfg.ScopeType)
		}
		if factor == "" {
			factor = string(cfg.EmissionFactor)
		}
		category, activity = cfg.CategoryName, cfg.Activity
	}
	rc.scope, rc.scoped = emission.ParseScopeType(scopeRaw)
	rc.category = NewGroupKey(category)
	rc.activity = NewGroupKey(activity)
	rc.factor = NewGroupKey(factor)
	return rc
}

func (a *accumulator) add(r *models.ActivityRecord, chart *models.Flowchart) error {
	g, err := RecordTotal(r)
	if err != nil {
		return err
	}
	a.s.TotalEmissions.Add(g)

	rc := resolveContext(r, chart)
	if !rc.scoped {
		a.unscoped = append(a.unscoped, r.ID)
		return nil
	}
	scope := string(rc.scope)

	t := a.s.ByScope[scope]
	t.Add(g)
	a.s.ByScope[scope] = t

	cat := a.s.ByCategory[string(rc.category)]
	cat.Add(g)
	cat.ScopeType = rc.scope
	if cat.Activities == nil {
		cat.Activities = map[string]models.Totals{}
	}
	act := cat.Activities[string(rc.activity)]
	act.Add(g)
	cat.Activities[string(rc.activity)] = act
	a.s.ByCategory[string(rc.category)] = cat

	flat := a.s.ByActivity[string(rc.activity)]
	flat.Add(g)
	flat.ScopeType = rc.scope
	flat.CategoryName = string(rc.category)
	a.s.ByActivity[string(rc.activity)] = flat

	node := a.s.ByNode[string(rc.node)]
	node.Add(g)
	node.Label = rc.label
	node.Department = string(rc.department)
	node.Location = string(rc.location)
	if node.ByScope == nil {
		node.ByScope = map[string]models.Totals{}
	}
	ns := node.ByScope[scope]
	ns.Add(g)
	node.ByScope[scope] = ns
	a.s.ByNode[string(rc.node)] = node

	dept := a.s.ByDepartment[string(rc.department)]
	dept.Add(g)
	a.s.ByDepartment[string(rc.department)] = dept
	addMember(a.departments, rc.department, r.NodeID)

	loc := a.s.ByLocation[string(rc.location)]
	loc.Add(g)
	a.s.ByLocation[string(rc.location)] = loc
	addMember(a.locations, rc.location, r.NodeID)

	ef := a.s.ByEmissionFactor[string(rc.factor)]
	ef.Add(g)
	if ef.ScopeTypes == nil {
		ef.ScopeTypes = map[string]int{}
	}
	ef.ScopeTypes[scope]++
	a.s.ByEmissionFactor[string(rc.factor)] = ef

	inputKey := string(NewGroupKey(string(r.InputType)))
	if it, ok := models.ParseInputType(string(r.InputType)); ok {
		inputKey = string(it)
	}
	in := a.s.ByInputType[inputKey]
	in.Add(g)
	a.s.ByInputType[inputKey] = in
	return nil
}

func addMember(sets map[GroupKey]map[string]struct{}, key GroupKey, nodeID string) {
	set, ok := sets[key]
	if !ok {
		set = map[string]struct{}{}
		sets[key] = set
	}
	set[nodeID] = struct{}{}
}

// finish writes distinct node counts into the department and location
// groupings.
func (a *accumulator) finish() {
	for key, nodes := range a.departments {
		d := a.s.ByDepartment[string(key)]
		d.NodeCount = len(nodes)
		a.s.ByDepartment[string(key)] = d
	}
	for key, nodes := range a.locations {
		l := a.s.ByLocation[string(key)]
		l.NodeCount = len(nodes)
		a.s.ByLocation[string(key)] = l
	}
}
