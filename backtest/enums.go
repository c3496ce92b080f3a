package backtest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownTradeMode is returned when parsing an unrecognised trade mode
	ErrUnknownTradeMode  = errors.New("unknown trade mode")
	errUnknownSymbolType = errors.New("unknown symbol type")
	errUnknownEngine     = errors.New("unknown engine")
)

// TradeMode is the stage a strategy run belongs to
type TradeMode string

// TradeMode values
const (
	Train    TradeMode = "train"
	Test     TradeMode = "test"
	Simulate TradeMode = "simulate"
	Live     TradeMode = "live"
	Global   TradeMode = "global"
)

var tradeModes = []TradeMode{Train, Test, Simulate, Live, Global}

// ParseTradeMode returns the trade mode matching s, ignoring case
func ParseTradeMode(s string) (TradeMode, error) {
	for _, m := range tradeModes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTradeMode, s)
}

// SymbolType is the market the traded symbol belongs to
type SymbolType string

// SymbolType values
const (
	DefaultSymbol SymbolType = "default"
	UsStock       SymbolType = "UsStock"
	VnStock       SymbolType = "VnStock"
	VnFuture      SymbolType = "VnFuture"
	VnIndex       SymbolType = "index"
	CryptoSpot    SymbolType = "CryptoSpot"
	CryptoFuture  SymbolType = "CryptoFuture"
	Forex         SymbolType = "forex"
)

var symbolTypes = []SymbolType{DefaultSymbol, UsStock, VnStock, VnFuture, VnIndex, CryptoSpot, CryptoFuture, Forex}

// ParseSymbolType returns the symbol type matching s, ignoring case
func ParseSymbolType(s string) (SymbolType, error) {
	for _, st := range symbolTypes {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errUnknownSymbolType, s)
}

// Engine is the kind of bot that produced the signals
type Engine string

// Engine values
const (
	TABot         Engine = "TA-Bot"
	AIBot         Engine = "AI-Bot"
	XQuant        Engine = "X-Quant"
	DefaultEngine Engine = "Default"
)

var engines = []Engine{TABot, AIBot, XQuant, DefaultEngine}

// ParseEngine returns the engine matching s, ignoring case
func ParseEngine(s string) (Engine, error) {
	for _, e := range engines {
		if strings.EqualFold(s, string(e)) {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errUnknownEngine, s)
}
