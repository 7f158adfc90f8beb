package engine

import (
	"sort"
	"strconv"

	"debond-math/internal/auction"
	"debond-math/internal/curve"
	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/interest"
	"debond-math/internal/liquidity"
	"debond-math/internal/vesting"
)

// ResultKind names the shape of Result.Value.
type ResultKind string

// Result kinds.
const (
	KindAmount   ResultKind = "amount"
	KindInt      ResultKind = "int"
	KindBool     ResultKind = "bool"
	KindProgress ResultKind = "progress"
)

// nowParam is filled from the engine clock when the caller omits it.
const nowParam = "now"

// Operation describes one registered operation.
type Operation struct {
	Name    string     `json:"name"`
	Params  []Param    `json:"params"`
	Returns ResultKind `json:"returns"`
	Summary string     `json:"summary"`

	run func(a Args) (*Result, error)
}

func amount(name string) Param { return Param{Name: name, Type: ParamAmount} }
func seconds(name string) Param { return Param{Name: name, Type: ParamInt} }
func clockParam() Param { return Param{Name: nowParam, Type: ParamInt, Optional: true} }
func optAmount(name string) Param { return Param{Name: name, Type: ParamAmount, Optional: true} }

func amountResult(v fixedpoint.Amount, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	return &Result{Value: v.Decimal().String(), Raw: v.String(), Kind: KindAmount}, nil
}

func progressResult(p domain.Progress, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	return &Result{Value: strconv.FormatInt(p.Achieved, 10), Kind: KindProgress, Progress: &p}, nil
}

var positionParams = []Param{amount("fixedRateBond"), amount("floatingRateBond"), amount("benchmarkIR")}

var liquidityParams = []Param{
	amount("sumOfLiquidityFlow"),
	amount("sumOfLiquidityOfLastNonce"),
	optAmount("lastMonthLiquidityFlow"),
	amount("benchmarkIR"),
}

var ledgerParams = []Param{amount("oldEntries"), amount("totalEntries"), amount("totalBalance"), amount("amount")}

var registry = map[string]*Operation{}

func register(op *Operation) {
	registry[op.Name] = op
}

func init() {
	register(&Operation{
		Name:    "mulDiv",
		Params:  []Param{amount("x"), amount("y"), amount("denominator")},
		Returns: KindAmount,
		Summary: "x*y/denominator with a full-width intermediate, truncated",
		run: func(a Args) (*Result, error) {
			x, err := a.amount("x")
			if err != nil {
				return nil, err
			}
			y, err := a.amount("y")
			if err != nil {
				return nil, err
			}
			d, err := a.amount("denominator")
			if err != nil {
				return nil, err
			}
			// Scaled operands: x*y carries WAD^2, dividing by a scaled
			// denominator keeps a single WAD.
			return amountResult(fixedpoint.MulDiv(x, y, d))
		},
	})

	register(&Operation{
		Name:    "cdpDbitToDgov",
		Params:  []Param{amount("collateralizedSupply")},
		Returns: KindAmount,
		Summary: "DBIT->DGOV price 1/(100+(s/33333)^2)",
		run: func(a Args) (*Result, error) {
			s, err := a.amount("collateralizedSupply")
			if err != nil {
				return nil, err
			}
			return amountResult(curve.CdpDbitToDgov(s))
		},
	})

	register(&Operation{
		Name:    "cdpUsdToDbit",
		Params:  []Param{amount("collateralizedSupply")},
		Returns: KindAmount,
		Summary: "USD->DBIT price, 1 up to 1000 tokens then 1.05 per doubling",
		run: func(a Args) (*Result, error) {
			s, err := a.amount("collateralizedSupply")
			if err != nil {
				return nil, err
			}
			return amountResult(curve.CdpUsdToDbit(s))
		},
	})

	register(&Operation{
		Name:    "sigmoid",
		Params:  []Param{amount("x"), amount("c")},
		Returns: KindAmount,
		Summary: "allocation sigmoid for x, c in (0, 1)",
		run: func(a Args) (*Result, error) {
			x, err := a.amount("x")
			if err != nil {
				return nil, err
			}
			c, err := a.amount("c")
			if err != nil {
				return nil, err
			}
			return amountResult(curve.Sigmoid(x, c))
		},
	})

	register(&Operation{
		Name:    "getAmountOut",
		Params:  []Param{amount("amountIn"), amount("reserveIn"), amount("reserveOut")},
		Returns: KindAmount,
		Summary: "zero-fee constant-product swap output",
		run: func(a Args) (*Result, error) {
			in, err := a.amount("amountIn")
			if err != nil {
				return nil, err
			}
			rIn, err := a.amount("reserveIn")
			if err != nil {
				return nil, err
			}
			rOut, err := a.amount("reserveOut")
			if err != nil {
				return nil, err
			}
			return amountResult(curve.GetAmountOut(in, rIn, rOut))
		},
	})

	register(&Operation{
		Name:    "getLockedBalance",
		Params:  []Param{amount("collateralizedSupply"), amount("airdropSupply"), amount("airdropBalance")},
		Returns: KindAmount,
		Summary: "airdropped balance still locked",
		run: func(a Args) (*Result, error) {
			coll, err := a.amount("collateralizedSupply")
			if err != nil {
				return nil, err
			}
			supply, err := a.amount("airdropSupply")
			if err != nil {
				return nil, err
			}
			bal, err := a.amount("airdropBalance")
			if err != nil {
				return nil, err
			}
			return amountResult(vesting.LockedBalance(coll, supply, bal))
		},
	})

	register(&Operation{
		Name:    "getProgress",
		Params:  []Param{seconds("maturityDate"), seconds("period"), clockParam()},
		Returns: KindProgress,
		Summary: "percentage of period elapsed toward maturity",
		run: func(a Args) (*Result, error) {
			maturity, err := a.integer("maturityDate")
			if err != nil {
				return nil, err
			}
			period, err := a.integer("period")
			if err != nil {
				return nil, err
			}
			now, err := a.integer(nowParam)
			if err != nil {
				return nil, err
			}
			return progressResult(vesting.Progress(maturity, period, now))
		},
	})

	register(&Operation{
		Name: "getProgress2",
		Params: []Param{
			amount("currentSupply"),
			amount("supplyAtNonce"),
			{Name: "fixedThresholdRate", Type: ParamAmount, Default: "0.05"},
		},
		Returns: KindProgress,
		Summary: "100 once supplyAtNonce <= currentSupply/(1+rate), else 0",
		run: func(a Args) (*Result, error) {
			current, err := a.amount("currentSupply")
			if err != nil {
				return nil, err
			}
			atNonce, err := a.amount("supplyAtNonce")
			if err != nil {
				return nil, err
			}
			rate, err := a.amount("fixedThresholdRate")
			if err != nil {
				return nil, err
			}
			return progressResult(vesting.ThresholdProgressAt(current, atNonce, rate))
		},
	})

	register(&Operation{
		Name:    "amountToAddEntry",
		Params:  ledgerParams,
		Returns: KindAmount,
		Summary: "entries held after depositing amount",
		run: func(a Args) (*Result, error) {
			l, err := a.ledger()
			if err != nil {
				return nil, err
			}
			amt, err := a.amount("amount")
			if err != nil {
				return nil, err
			}
			return amountResult(vesting.AmountToAddEntry(l, amt))
		},
	})

	register(&Operation{
		Name:    "amountToRemoveEntry",
		Params:  ledgerParams,
		Returns: KindAmount,
		Summary: "entries held after withdrawing amount",
		run: func(a Args) (*Result, error) {
			l, err := a.ledger()
			if err != nil {
				return nil, err
			}
			amt, err := a.amount("amount")
			if err != nil {
				return nil, err
			}
			return amountResult(vesting.AmountToRemoveEntry(l, amt))
		},
	})

	register(&Operation{
		Name:    "floatingInterestRate",
		Params:  positionParams,
		Returns: KindAmount,
		Summary: "floating rate from the fixed share of the position",
		run: func(a Args) (*Result, error) {
			pos, ir, err := positionArgs(a)
			if err != nil {
				return nil, err
			}
			return amountResult(interest.FloatingInterestRate(pos, ir))
		},
	})

	register(&Operation{
		Name:    "fixedInterestRate",
		Params:  positionParams,
		Returns: KindAmount,
		Summary: "2*benchmarkIR minus the floating rate",
		run: func(a Args) (*Result, error) {
			pos, ir, err := positionArgs(a)
			if err != nil {
				return nil, err
			}
			return amountResult(interest.FixedInterestRate(pos, ir))
		},
	})

	register(&Operation{
		Name:    "calculateInterestRate",
		Params:  []Param{seconds("duration"), amount("annualRate")},
		Returns: KindAmount,
		Summary: "annual rate prorated to duration seconds",
		run: func(a Args) (*Result, error) {
			d, err := a.integer("duration")
			if err != nil {
				return nil, err
			}
			r, err := a.amount("annualRate")
			if err != nil {
				return nil, err
			}
			return amountResult(interest.CalculateInterestRate(d, r))
		},
	})

	register(&Operation{
		Name:    "estimateInterestEarned",
		Params:  []Param{amount("amount"), seconds("duration"), amount("annualRate")},
		Returns: KindAmount,
		Summary: "amount times the prorated rate",
		run: func(a Args) (*Result, error) {
			amt, err := a.amount("amount")
			if err != nil {
				return nil, err
			}
			d, err := a.integer("duration")
			if err != nil {
				return nil, err
			}
			r, err := a.amount("annualRate")
			if err != nil {
				return nil, err
			}
			return amountResult(interest.EstimateInterestEarned(amt, d, r))
		},
	})

	register(&Operation{
		Name:    "lastMonthAverageLiquidityFlow",
		Params:  []Param{amount("sumOfLiquidityFlow"), amount("benchmarkIR")},
		Returns: KindAmount,
		Summary: "sumOfLiquidityFlow*(1+benchmarkIR)",
		run: func(a Args) (*Result, error) {
			sum, err := a.amount("sumOfLiquidityFlow")
			if err != nil {
				return nil, err
			}
			ir, err := a.amount("benchmarkIR")
			if err != nil {
				return nil, err
			}
			return amountResult(interest.LastMonthAverageLiquidityFlow(sum, ir))
		},
	})

	register(&Operation{
		Name:    "deficitOfBond",
		Params:  liquidityParams,
		Returns: KindAmount,
		Summary: "expected liquidity minus the last nonce's liquidity",
		run: func(a Args) (*Result, error) {
			s, ir, err := liquidityArgs(a)
			if err != nil {
				return nil, err
			}
			return amountResult(liquidity.DeficitOfBond(s, ir))
		},
	})

	register(&Operation{
		Name:    "inCrisis",
		Params:  liquidityParams,
		Returns: KindBool,
		Summary: "true while the deficit is positive",
		run: func(a Args) (*Result, error) {
			s, ir, err := liquidityArgs(a)
			if err != nil {
				return nil, err
			}
			crisis, err := liquidity.InCrisis(s, ir)
			if err != nil {
				return nil, err
			}
			return &Result{Value: strconv.FormatBool(crisis), Kind: KindBool}, nil
		},
	})

	register(&Operation{
		Name: "floatingETA",
		Params: []Param{
			seconds("maturityTime"),
			amount("sumOfLiquidityFlow"),
			amount("sumOfLiquidityOfLastNonce"),
			amount("lastMonthLiquidityFlow"),
			amount("benchmarkIR"),
			seconds("nonceDuration"),
		},
		Returns: KindInt,
		Summary: "redemption time pushed back by the deficit",
		run: func(a Args) (*Result, error) {
			maturity, err := a.integer("maturityTime")
			if err != nil {
				return nil, err
			}
			s, ir, err := liquidityArgs(a)
			if err != nil {
				return nil, err
			}
			nonce, err := a.integer("nonceDuration")
			if err != nil {
				return nil, err
			}
			eta, err := liquidity.FloatingETA(maturity, s, ir, nonce)
			if err != nil {
				return nil, err
			}
			return &Result{Value: strconv.FormatInt(eta, 10), Kind: KindInt}, nil
		},
	})

	register(&Operation{
		Name: "currentPrice",
		Params: []Param{
			seconds("startingTime"),
			seconds("duration"),
			{Name: "curve", Type: ParamCurve, Default: string(domain.CurveLinear)},
			amount("maxAmount"),
			amount("minAmount"),
			clockParam(),
		},
		Returns: KindAmount,
		Summary: "time-decayed auction price at now",
		run: func(a Args) (*Result, error) {
			p, err := a.auction()
			if err != nil {
				return nil, err
			}
			now, err := a.integer(nowParam)
			if err != nil {
				return nil, err
			}
			return amountResult(auction.CurrentPrice(p, now))
		},
	})
}

func positionArgs(a Args) (domain.BondPosition, fixedpoint.Amount, error) {
	pos, err := a.position()
	if err != nil {
		return pos, fixedpoint.Zero(), err
	}
	ir, err := a.amount("benchmarkIR")
	return pos, ir, err
}

func liquidityArgs(a Args) (domain.LiquidityState, fixedpoint.Amount, error) {
	s, err := a.liquidity()
	if err != nil {
		return s, fixedpoint.Zero(), err
	}
	ir, err := a.amount("benchmarkIR")
	return s, ir, err
}

// Operations returns all registered operations sorted by name.
func Operations() []Operation {
	out := make([]Operation, 0, len(registry))
	for _, op := range registry {
		out = append(out, *op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the operation registered under name.
func Lookup(name string) (Operation, bool) {
	op, ok := registry[name]
	if !ok {
		return Operation{}, false
	}
	return *op, true
}
