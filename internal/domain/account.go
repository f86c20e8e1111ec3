package domain

import (
	"fmt"
	"math"
	"strings"
)

// DrawdownKind define cómo se calcula el floor de pérdida máxima.
type DrawdownKind string

const (
	// DrawdownStatic: floor fijo = starting_balance - drawdown_amount.
	DrawdownStatic DrawdownKind = "static"
	// DrawdownTrailing: floor = high_water_mark - drawdown_amount, solo sube.
	DrawdownTrailing DrawdownKind = "trailing"
)

// ParseDrawdownKind acepta "static" o "trailing" (case-insensitive).
func ParseDrawdownKind(s string) (DrawdownKind, error) {
	switch DrawdownKind(strings.ToLower(strings.TrimSpace(s))) {
	case DrawdownStatic:
		return DrawdownStatic, nil
	case DrawdownTrailing:
		return DrawdownTrailing, nil
	default:
		return "", fmt.Errorf("%w: unknown drawdown kind %q", ErrConfiguration, s)
	}
}

// finite indica si v es un número real utilizable (ni NaN ni ±Inf).
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AccountTypeParams son las reglas numéricas de un tipo de cuenta.
// Inmutables: se buscan una vez por run en el registry y se comparten
// (solo lectura) entre todos los trials.
type AccountTypeParams struct {
	Key                   string  // "<company>:<account>"
	StartingBalance       float64 // 0 = contabilidad relativa (P&L desde el inicio)
	ProfitTarget          float64 // ganancia sobre el baseline necesaria para un payout
	DrawdownKind          DrawdownKind
	DrawdownAmount        float64
	MaxPayouts            int
	PayoutThreshold       float64 // balance absoluto mínimo para pedir payout (0 = sin mínimo)
	MinDaysBetweenPayouts int
	Cost                  float64 // coste de la cuenta, se descuenta del payout neto
	TrailLock             bool    // el floor trailing deja de subir al llegar al starting balance
}

// Validate comprueba que los parámetros tengan sentido.
func (p AccountTypeParams) Validate() error {
	switch {
	case p.StartingBalance < 0 || !finite(p.StartingBalance):
		return fmt.Errorf("%w: %s: starting_balance must be a finite number >= 0", ErrConfiguration, p.Key)
	case !finite(p.DrawdownAmount) || !finite(p.ProfitTarget) || !finite(p.PayoutThreshold) || !finite(p.Cost):
		return fmt.Errorf("%w: %s: amounts must be finite numbers", ErrConfiguration, p.Key)
	case p.DrawdownAmount <= 0:
		return fmt.Errorf("%w: %s: drawdown_amount must be > 0", ErrConfiguration, p.Key)
	case p.ProfitTarget <= 0:
		return fmt.Errorf("%w: %s: profit_target must be > 0", ErrConfiguration, p.Key)
	case p.MaxPayouts < 0:
		return fmt.Errorf("%w: %s: max_payouts must be >= 0", ErrConfiguration, p.Key)
	case p.MinDaysBetweenPayouts < 0:
		return fmt.Errorf("%w: %s: min_days_between_payouts must be >= 0", ErrConfiguration, p.Key)
	case p.PayoutThreshold < 0 || p.Cost < 0:
		return fmt.Errorf("%w: %s: payout_threshold and cost must be >= 0", ErrConfiguration, p.Key)
	}
	if p.DrawdownKind != DrawdownStatic && p.DrawdownKind != DrawdownTrailing {
		return fmt.Errorf("%w: %s: unknown drawdown kind %q", ErrConfiguration, p.Key, p.DrawdownKind)
	}
	return nil
}

// Status es la variante del ciclo de vida de una cuenta.
// Active -> {Active, Busted, TimedOut, MaxPayoutsReached}; los tres últimos son terminales.
type Status string

const (
	StatusActive     Status = "Active"
	StatusBusted     Status = "Busted"
	StatusTimedOut   Status = "TimedOut"
	StatusMaxPayouts Status = "MaxPayoutsReached"
)

// EndStates lista los estados terminales en orden de presentación.
var EndStates = []Status{StatusBusted, StatusTimedOut, StatusMaxPayouts}

// Terminal indica si el estado no admite más transiciones.
func (s Status) Terminal() bool {
	return s == StatusBusted || s == StatusTimedOut || s == StatusMaxPayouts
}

// ParseEndStateFilter convierte el filtro de condición en un estado terminal.
// "all" (o vacío) devuelve "" = sin filtro. Acepta también los alias cortos
// "timeout" y "maxpayouts".
func ParseEndStateFilter(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case "busted":
		return StatusBusted, nil
	case "timeout", "timedout":
		return StatusTimedOut, nil
	case "maxpayouts", "maxpayoutsreached":
		return StatusMaxPayouts, nil
	default:
		return "", fmt.Errorf("%w: invalid end state condition %q (want All, Busted, TimedOut or MaxPayouts)", ErrConfiguration, s)
	}
}
