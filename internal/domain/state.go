package domain

import "fmt"

// AccountState es el estado mutable de una cuenta durante un trial.
// Pertenece a un único trial; solo Rules.Advance produce estados nuevos.
type AccountState struct {
	Status         Status
	Balance        float64
	HighWaterMark  float64
	PayoutBaseline float64 // balance tras el último payout (o el inicial)
	DaysElapsed    int
	PayoutsTaken   int
	LastPayoutDay  int
	TotalPayouts   float64 // profit acreditado fuera de la cuenta
}

// Step describe lo que pasó en un día simulado.
type Step struct {
	EndState     Status // "" si la cuenta sigue activa
	BustTrade    int    // índice del trade que rompió el floor, -1 si no hubo bust
	TradesTaken  int
	DayPnL       float64
	Payout       bool
	PayoutAmount float64
}

// Terminal indica si el día cerró la cuenta.
func (s Step) Terminal() bool {
	return s.EndState != ""
}

// Rules combina los parámetros de la cuenta con los límites del run.
// Es un valor inmutable: Advance es una función pura (estado, día) -> (estado, step).
type Rules struct {
	Params            AccountTypeParams
	MaxPayouts        int
	MaxSimulationDays int
}

// NewRules construye las reglas de un run. maxPayoutsOverride > 0 reemplaza
// el máximo de payouts del tipo de cuenta.
func NewRules(p AccountTypeParams, maxSimulationDays, maxPayoutsOverride int) (Rules, error) {
	if err := p.Validate(); err != nil {
		return Rules{}, err
	}
	if maxSimulationDays <= 0 {
		return Rules{}, fmt.Errorf("%w: max_simulation_days must be > 0", ErrConfiguration)
	}
	if maxPayoutsOverride < 0 {
		return Rules{}, fmt.Errorf("%w: max_payouts override must be >= 0", ErrConfiguration)
	}
	maxPayouts := p.MaxPayouts
	if maxPayoutsOverride > 0 {
		maxPayouts = maxPayoutsOverride
	}
	return Rules{Params: p, MaxPayouts: maxPayouts, MaxSimulationDays: maxSimulationDays}, nil
}

// Start devuelve el estado inicial de un trial.
func (r Rules) Start() AccountState {
	start := r.Params.StartingBalance
	return AccountState{
		Status:         StatusActive,
		Balance:        start,
		HighWaterMark:  start,
		PayoutBaseline: start,
	}
}

// Floor devuelve el nivel de equity que no se puede tocar.
//   - Static: starting_balance - drawdown_amount, fijo toda la vida del trial.
//   - Trailing: high_water_mark - drawdown_amount; con TrailLock no pasa del starting balance.
func (r Rules) Floor(s AccountState) float64 {
	p := r.Params
	if p.DrawdownKind != DrawdownTrailing {
		return p.StartingBalance - p.DrawdownAmount
	}
	floor := s.HighWaterMark - p.DrawdownAmount
	if p.TrailLock && floor > p.StartingBalance {
		floor = p.StartingBalance
	}
	return floor
}

// Advance aplica un día de trades al estado y devuelve el estado siguiente.
//
// Orden por trade: primero se comprueba el trough (balance + peor excursión,
// incluyendo el cierre) contra el floor; si queda por debajo, Busted en ese
// trade y el resto del día se ignora. Tocar el floor exacto no revienta. Si no, se aplica el P&L y, en cuentas trailing, se
// sube el high water mark.
//
// Al final del día sin bust: days_elapsed++, se evalúa el payout y después el
// timeout. Un bust nunca cobra payout ni hace timeout ese mismo día.
//
// Un trade inválido devuelve ErrData y el estado de entrada sin cambios.
func (r Rules) Advance(s AccountState, day SimDay) (AccountState, Step, error) {
	step := Step{BustTrade: -1}
	if s.Status != StatusActive {
		return s, step, fmt.Errorf("domain.Advance: account is already %s", s.Status)
	}
	for i, t := range day.Trades {
		if err := t.Validate(); err != nil {
			return s, Step{BustTrade: -1}, fmt.Errorf("trade %d: %w", i, err)
		}
	}

	next := s
	for i, t := range day.Trades {
		trough := next.Balance + t.Trough()
		if trough < r.Floor(next) {
			next.Balance = trough
			next.Status = StatusBusted
			step.EndState = StatusBusted
			step.BustTrade = i
			step.TradesTaken = i + 1
			step.DayPnL += t.Trough()
			return next, step, nil
		}

		next.Balance += t.RealizedPnL
		step.DayPnL += t.RealizedPnL
		step.TradesTaken++
		if r.Params.DrawdownKind == DrawdownTrailing && next.Balance > next.HighWaterMark {
			next.HighWaterMark = next.Balance
		}
	}

	next.DaysElapsed++

	if r.payoutDue(next) {
		amount := next.Balance - next.PayoutBaseline
		next.PayoutsTaken++
		next.TotalPayouts += amount
		next.PayoutBaseline = next.Balance
		next.LastPayoutDay = next.DaysElapsed
		step.Payout = true
		step.PayoutAmount = amount

		if next.PayoutsTaken >= r.MaxPayouts {
			next.Status = StatusMaxPayouts
			step.EndState = StatusMaxPayouts
			return next, step, nil
		}
	}

	if next.DaysElapsed >= r.MaxSimulationDays {
		next.Status = StatusTimedOut
		step.EndState = StatusTimedOut
	}
	return next, step, nil
}

// payoutDue evalúa las condiciones de payout al cierre del día.
func (r Rules) payoutDue(s AccountState) bool {
	if r.MaxPayouts <= 0 || s.PayoutsTaken >= r.MaxPayouts {
		return false
	}
	if s.Balance-s.PayoutBaseline < r.Params.ProfitTarget {
		return false
	}
	if r.Params.PayoutThreshold > 0 && s.Balance < r.Params.PayoutThreshold {
		return false
	}
	return s.DaysElapsed-s.LastPayoutDay >= r.Params.MinDaysBetweenPayouts
}
