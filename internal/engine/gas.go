package engine

import (
	"context"
	"math/big"

	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/gzale/wrapcycle/internal/logging"
)

type gasPriceSource interface {
	GasPrice(ctx context.Context) (*big.Int, error)
}

// GasAdvisor scales the node's suggested gas price by a configured multiplier.
// The math stays in big.Rat so large base prices never lose precision.
type GasAdvisor struct {
	source     gasPriceSource
	multiplier *big.Rat
	log        logging.Logger
}

func NewGasAdvisor(source gasPriceSource, multiplier *big.Rat, log logging.Logger) *GasAdvisor {
	return &GasAdvisor{source: source, multiplier: multiplier, log: log}
}

// Advise returns floor(current gas price × multiplier) in wei.
func (g *GasAdvisor) Advise(ctx context.Context) (*big.Int, error) {
	base, err := g.source.GasPrice(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "query gas price", err)
	}
	adjusted := ScaleGasPrice(base, g.multiplier)
	g.log.Infof("gas price %s wei, adjusted to %s wei", base, adjusted)
	return adjusted, nil
}

// ScaleGasPrice computes floor(base × multiplier) with integer arithmetic.
func ScaleGasPrice(base *big.Int, multiplier *big.Rat) *big.Int {
	scaled := new(big.Rat).SetInt(base)
	scaled.Mul(scaled, multiplier)
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}
