package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/razor389/prop-simulator/internal/domain"
)

//go:embed accounts.yaml
var builtinAccounts []byte

// accountYAML es una entrada del archivo de cuentas.
type accountYAML struct {
	StartingBalance       *float64 `yaml:"starting_balance"`
	ProfitTarget          float64  `yaml:"profit_target"`
	Drawdown              string   `yaml:"drawdown"`
	DrawdownAmount        float64  `yaml:"drawdown_amount"`
	TrailLock             bool     `yaml:"trail_lock"`
	MaxPayouts            int      `yaml:"max_payouts"`
	PayoutThreshold       float64  `yaml:"payout_threshold"`
	MinDaysBetweenPayouts int      `yaml:"min_days_between_payouts"`
	Cost                  float64  `yaml:"cost"`
}

// Registry resuelve claves "<company>:<account>" a parámetros inmutables.
// Se construye una vez y es de solo lectura, seguro para uso concurrente.
type Registry struct {
	accounts map[string]domain.AccountTypeParams
}

// New devuelve el registry con las cuentas embebidas.
func New() (*Registry, error) {
	return Load("")
}

// Load carga las cuentas embebidas y, si path no está vacío, mezcla encima
// las del archivo: una clave repetida reemplaza la entrada completa.
func Load(path string) (*Registry, error) {
	r := &Registry{accounts: make(map[string]domain.AccountTypeParams)}
	if err := r.merge(builtinAccounts); err != nil {
		return nil, fmt.Errorf("registry.Load: builtin: %w", err)
	}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry.Load: %w: read %s: %v", domain.ErrConfiguration, path, err)
	}
	if err := r.merge(data); err != nil {
		return nil, fmt.Errorf("registry.Load: %s: %w", path, err)
	}
	return r, nil
}

func (r *Registry) merge(data []byte) error {
	var companies map[string]map[string]accountYAML
	if err := yaml.Unmarshal(data, &companies); err != nil {
		return fmt.Errorf("%w: parse accounts: %v", domain.ErrConfiguration, err)
	}
	for company, accounts := range companies {
		for name, a := range accounts {
			key, err := NormalizeKey(company + ":" + name)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
			}
			p, err := a.params(key)
			if err != nil {
				return err
			}
			r.accounts[key] = p
		}
	}
	return nil
}

func (a accountYAML) params(key string) (domain.AccountTypeParams, error) {
	if a.StartingBalance == nil {
		return domain.AccountTypeParams{}, fmt.Errorf("%w: %s: starting_balance is required", domain.ErrConfiguration, key)
	}
	kind, err := domain.ParseDrawdownKind(a.Drawdown)
	if err != nil {
		return domain.AccountTypeParams{}, fmt.Errorf("%s: %w", key, err)
	}
	p := domain.AccountTypeParams{
		Key:                   key,
		StartingBalance:       *a.StartingBalance,
		ProfitTarget:          a.ProfitTarget,
		DrawdownKind:          kind,
		DrawdownAmount:        a.DrawdownAmount,
		MaxPayouts:            a.MaxPayouts,
		PayoutThreshold:       a.PayoutThreshold,
		MinDaysBetweenPayouts: a.MinDaysBetweenPayouts,
		Cost:                  a.Cost,
		TrailLock:             a.TrailLock,
	}
	return p, p.Validate()
}

// Lookup implementa ports.AccountRegistry. Las claves no distinguen mayúsculas.
func (r *Registry) Lookup(key string) (domain.AccountTypeParams, error) {
	norm, err := NormalizeKey(key)
	if err != nil {
		return domain.AccountTypeParams{}, fmt.Errorf("registry.Lookup: %w: %v", domain.ErrUnknownAccountType, err)
	}
	p, ok := r.accounts[norm]
	if !ok {
		return domain.AccountTypeParams{}, fmt.Errorf("registry.Lookup: %w: %q", domain.ErrUnknownAccountType, key)
	}
	return p, nil
}

// Keys lista las claves conocidas, ordenadas.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.accounts))
	for k := range r.accounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeKey valida el formato "<company>:<account>" y lo pasa a minúsculas.
func NormalizeKey(key string) (string, error) {
	parts := strings.Split(strings.TrimSpace(key), ":")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid account type %q, use 'company:account'", key)
	}
	return strings.ToLower(strings.TrimSpace(parts[0])) + ":" + strings.ToLower(strings.TrimSpace(parts[1])), nil
}
