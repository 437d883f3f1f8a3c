package simulate

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
)

// Point tiers. Integral points keep totals exact on both sides.
var pointTiers = []struct{ min, span int }{
	{1, 5},   // low
	{5, 10},  // average
	{10, 15}, // high
	{25, 25}, // elite, rare
}

// Plan is a generated workload and the totals it should produce.
type Plan struct {
	Sessions []Session
	Totals   map[string]float64
	Teams    map[string]string
}

// Generate builds a deterministic workload for cfg.
func Generate(cfg *Config) Plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible workload

	plan := Plan{Totals: make(map[string]float64, cfg.Members), Teams: make(map[string]string, cfg.Members)}
	perMember := max(cfg.SessionsPerMember, 1)
	for i := 0; i < cfg.Members; i++ {
		id := fmt.Sprintf("sim-%04d", i)
		team := ""
		if cfg.Teams > 0 {
			team = fmt.Sprintf("team-%d", i%cfg.Teams)
		}
		plan.Teams[id] = team

		tier := pointTiers[tierIndex(rng)]
		for n := 1 + rng.IntN(perMember); n > 0; n-- {
			pts := float64(tier.min + rng.IntN(tier.span))
			plan.Sessions = append(plan.Sessions, Session{
				EventID:  uuid.NewString(),
				MemberID: id,
				UserName: fmt.Sprintf("Member %d", i),
				TeamID:   team,
				Points:   pts,
			})
			plan.Totals[id] += pts
		}
	}
	rng.Shuffle(len(plan.Sessions), func(i, j int) {
		plan.Sessions[i], plan.Sessions[j] = plan.Sessions[j], plan.Sessions[i]
	})
	return plan
}

func tierIndex(rng *rand.Rand) int {
	switch r := rng.IntN(10); {
	case r < 3:
		return 0
	case r < 7:
		return 1
	case r < 9:
		return 2
	default:
		return 3
	}
}

// Expected is a member with its planned total, in board order.
type Expected struct {
	MemberID string
	Points   float64
}

// Ordered returns the planned totals sorted the way the boards sort them:
// points descending, ties by member id.
func (p Plan) Ordered() []Expected {
	out := make([]Expected, 0, len(p.Totals))
	for id, pts := range p.Totals {
		out = append(out, Expected{MemberID: id, Points: pts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].MemberID < out[j].MemberID
	})
	return out
}
