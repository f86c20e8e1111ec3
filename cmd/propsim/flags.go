package main

import (
	"flag"

	"github.com/razor389/prop-simulator/config"
)

// simFlags son los flags que pisan la sección simulation del config.
// Solo se aplican los que el usuario pasó explícitamente.
type simFlags struct {
	iterations     *int
	csv            *string
	account        *string
	days           *int
	maxPayouts     *int
	multiplier     *float64
	condition      *string
	seed           *uint64
	workers        *int
	roundTripCost  *float64
	historicalMode *string
	bins           *int

	avgTrades   *float64
	stopLoss    *float64
	takeProfit  *float64
	winPct      *float64
	winAdverse  *float64
	randomAdv   *bool
	maxTrades   *int
	dailyTarget *float64
	dailyStop   *float64
}

func registerSimFlags(fs *flag.FlagSet) *simFlags {
	return &simFlags{
		iterations:     fs.Int("iterations", 0, "number of simulated account lifetimes"),
		csv:            fs.String("csv", "", "trade log CSV (datetime,realized,adverse)"),
		account:        fs.String("account", "", "account type as company:account, e.g. ftt:gt"),
		days:           fs.Int("days", 0, "max simulated trading days per trial"),
		maxPayouts:     fs.Int("max-payouts", 0, "override the account's max payouts"),
		multiplier:     fs.Float64("multiplier", 0, "currency per instrument unit"),
		condition:      fs.String("condition", "", "aggregate only trials ending in: All|Busted|TimedOut|MaxPayouts"),
		seed:           fs.Uint64("seed", 0, "run seed (0 = random)"),
		workers:        fs.Int("workers", 0, "parallel workers (0 = NumCPU)"),
		roundTripCost:  fs.Float64("round-trip-cost", 0, "commission charged per trade"),
		historicalMode: fs.String("historical-mode", "", "resample whole days (day) or single trades (trade)"),
		bins:           fs.Int("bins", 0, "histogram bins"),

		avgTrades:   fs.Float64("avg-trades", 0, "synthetic: average trades per day"),
		stopLoss:    fs.Float64("stop-loss", 0, "synthetic: stop loss in instrument units"),
		takeProfit:  fs.Float64("take-profit", 0, "synthetic: take profit in instrument units"),
		winPct:      fs.Float64("win-pct", 0, "synthetic: win probability in [0,1]"),
		winAdverse:  fs.Float64("win-adverse", 0, "synthetic: fixed dip before a win closes"),
		randomAdv:   fs.Bool("randomize-win-adverse", false, "synthetic: draw the dip from a normal capped at the stop"),
		maxTrades:   fs.Int("max-trades", 0, "daily limit: max trades per day"),
		dailyTarget: fs.Float64("daily-target", 0, "daily limit: stop trading once the day makes this much"),
		dailyStop:   fs.Float64("daily-stop", 0, "daily limit: stop trading once the day loses this much (negative)"),
	}
}

// apply copia a sim los flags que aparecieron en la línea de comandos.
func (f *simFlags) apply(fs *flag.FlagSet, sim *config.SimulationConfig) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "iterations":
			sim.Iterations = *f.iterations
		case "csv":
			sim.CSVPath = *f.csv
		case "account":
			sim.AccountType = *f.account
		case "days":
			sim.MaxSimulationDays = *f.days
		case "max-payouts":
			sim.MaxPayouts = *f.maxPayouts
		case "multiplier":
			sim.Multiplier = *f.multiplier
		case "condition":
			sim.ConditionEndState = *f.condition
		case "seed":
			sim.Seed = *f.seed
		case "workers":
			sim.Workers = *f.workers
		case "round-trip-cost":
			sim.RoundTripCost = *f.roundTripCost
		case "historical-mode":
			sim.HistoricalMode = *f.historicalMode
		case "bins":
			sim.HistogramBins = *f.bins
		case "avg-trades":
			sim.Synthetic.AvgTradesPerDay = *f.avgTrades
		case "stop-loss":
			sim.Synthetic.StopLoss = *f.stopLoss
		case "take-profit":
			sim.Synthetic.TakeProfit = *f.takeProfit
		case "win-pct":
			v := *f.winPct
			sim.Synthetic.WinPercentage = &v
		case "win-adverse":
			sim.Synthetic.WinAdverseExcursion = *f.winAdverse
		case "randomize-win-adverse":
			sim.Synthetic.RandomizeWinAdverse = *f.randomAdv
		case "max-trades":
			sim.DailyLimits.MaxTradesPerDay = *f.maxTrades
		case "daily-target":
			sim.DailyLimits.DailyProfitTarget = *f.dailyTarget
		case "daily-stop":
			sim.DailyLimits.DailyStopLoss = *f.dailyStop
		}
	})
}
