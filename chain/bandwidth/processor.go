package bandwidth

import "context"

// Processor iterates the contracts inside one transaction, classifying each
// and running it through the tier Engine (spec.md §4.4).
type Processor struct {
	Accounts AccountStore
	Engine   *Engine
	Clock    Clock
}

// NewProcessor builds a Processor. accounts is also handed to the engine's
// collaborator set via NewEngine by the caller; Processor keeps its own
// reference only to resolve the sender before charging.
func NewProcessor(accounts AccountStore, engine *Engine, clock Clock) *Processor {
	return &Processor{Accounts: accounts, Engine: engine, Clock: clock}
}

// Consume runs spec.md §4.4: for each contract in transaction order, resolve
// the sender, run the tier cascade, and fail the whole transaction the
// moment one contract cannot be admitted. Contracts before the failing one
// have already had their store writes committed and are not rolled back
// (spec.md §7, §9) — callers needing atomicity across contracts must wrap
// Consume in an outer store snapshot.
func (p *Processor) Consume(ctx context.Context, tx Transaction) error {
	bytes := tx.SerializedSize()
	now := int64(p.Clock.HeadSlot())

	for _, c := range tx.Contracts() {
		if err := ctx.Err(); err != nil {
			return err
		}

		sender, err := p.Accounts.Get(ctx, c.Owner())
		if err != nil {
			return err
		}
		if sender == nil {
			return ErrAccountMissing
		}

		if err := p.Engine.Admit(ctx, c, sender, bytes, now); err != nil {
			return err
		}
	}

	return nil
}
