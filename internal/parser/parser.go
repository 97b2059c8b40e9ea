// Package parser converts callExtension string arguments into core types.
// It has no side effects beyond debug logging.
package parser

import (
	"fmt"
	"log/slog"

	"github.com/AIAI/extension/internal/util"
	"github.com/AIAI/extension/pkg/core"
)

// Parser provides pure []string -> core type conversion.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func want(data []string, n int, what string) error {
	if len(data) < n {
		return fmt.Errorf("%s: expected at least %d args, got %d", what, n, len(data))
	}
	return nil
}

// ParseSide reads the side from data[0]
func (p *Parser) ParseSide(data []string) (core.Side, error) {
	if err := want(data, 1, "side"); err != nil {
		return "", err
	}
	util.CleanArgs(data)
	return core.ParseSide(data[0])
}

// ParseCommanderConfig parses [side, debugMode, skill, tacticStyle]. Skill is a named
// level (Low/Medium/High) or a number in [0,1]. The result is not validated beyond
// parsing; Commander.InitCommander does that.
func (p *Parser) ParseCommanderConfig(data []string) (core.CommanderConfig, error) {
	var cfg core.CommanderConfig
	if err := want(data, 4, "commander config"); err != nil {
		return cfg, err
	}
	util.CleanArgs(data)

	side, err := core.ParseSide(data[0])
	if err != nil {
		return cfg, err
	}
	cfg.Side = side

	cfg.DebugMode, err = util.ParseBool(data[1])
	if err != nil {
		return cfg, fmt.Errorf("%w: debug mode: %v", core.ErrInvalidConfig, err)
	}

	cfg.SkillLevel, err = core.SkillFromLabel(data[2])
	if err != nil {
		return cfg, err
	}

	cfg.TacticStyle, err = core.ParseTacticStyle(data[3])
	if err != nil {
		return cfg, err
	}

	p.logger.Debug("Parsed commander config",
		"side", cfg.Side,
		"debug", cfg.DebugMode,
		"skill", cfg.SkillLevel,
		"style", cfg.TacticStyle)
	return cfg, nil
}

// ParseReason reads [side, reason]. A missing reason is reported as "unspecified".
func (p *Parser) ParseReason(data []string) (core.Side, string, error) {
	side, err := p.ParseSide(data)
	if err != nil {
		return "", "", err
	}
	if len(data) < 2 || data[1] == "" {
		return side, "unspecified", nil
	}
	return side, data[1], nil
}
