// strategy/recovery.go
package strategy

import (
	"context"
	"fmt"

	"hedge_pair_go/logs"
)

// RecoverExitMode derives the break-even flag from open leg counts: exactly one populated group
// means the other already banked its target.
func RecoverExitMode(buys, sells int) bool {
	return (buys > 0) != (sells > 0)
}

// Start re-derives the exit mode from the gateway and drops any pending exit. On failure the
// returned state is marked unrecovered and the error wraps ErrNotRecovered.
func Start(ctx context.Context, env *Env, st State) (State, error) {
	buy, sell, err := snapshot(ctx, env)
	if err != nil {
		st.Recovered = false
		return st, fmt.Errorf("%w: %v", ErrNotRecovered, err)
	}

	st.ExitAtBreakEven = RecoverExitMode(len(buy.Positions), len(sell.Positions))
	st.Recovered = true
	st.Pending = PendingExit{}
	logs.Infof("[Strategy] Recovered from %d buy / %d sell open legs (%s). Break even flag = %v",
		len(buy.Positions), len(sell.Positions), PhaseOf(len(buy.Positions), len(sell.Positions)), st.ExitAtBreakEven)
	return st, nil
}
