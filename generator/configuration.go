package generator

import (
	"fmt"
	"strconv"
	"strings"
)

// Parameter names understood by the built-in strategies
const (
	ParamGeneratorName = "generator_name"
	ParamTargetTable   = "target_table"
	ParamTargetColumn  = "target_column"

	ParamSequenceName    = "sequence_name"
	ParamTableName       = "table_name"
	ParamValueColumn     = "value_column"
	ParamInitialValue    = "initial_value"
	ParamIncrementSize   = "increment_size"
	ParamOptimizer       = "optimizer"
	ParamPreferredPooled = "preferred_pooled_optimizer"
	ParamForceTableUse   = "force_table_use"
	ParamOptions         = "options"
	ParamTableComment    = "table_comment"
	ParamSequenceSuffix  = "sequence_suffix"
	ParamDefaultSequence = "default_sequence_name"
	ParamUUIDStyle       = "style"
	ParamRedisKeyPrefix  = "key_prefix"
)

// Configuration is the resolved, merged view used to build one generator
type Configuration struct {
	Strategy      string
	GeneratorName string
	OwnerTable    string
	OwnerColumn   string
	Parameters    map[string]any
}

func newConfiguration(strategy string) *Configuration {
	return &Configuration{Strategy: strategy, Parameters: make(map[string]any)}
}

// merge overlays params; later calls win
func (c *Configuration) merge(params map[string]string) {
	for k, v := range params {
		c.Parameters[k] = v
	}
}

// Has reports whether key was supplied
func (c *Configuration) Has(key string) bool {
	_, ok := c.Parameters[key]
	return ok
}

// String returns a parameter as text or def when absent or blank
func (c *Configuration) String(key, def string) string {
	v, ok := c.Parameters[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	return s
}

// Int64 returns a parameter as an integer or def when absent
func (c *Configuration) Int64(key string, def int64) (int64, error) {
	v, ok := c.Parameters[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewConfigurationErrorf("INVALID_PARAMETER", "parameter %s of generator %q must be an integer, got %q", ErrInvalidParameter, key, c.GeneratorName, s)
	}
	return n, nil
}

// Bool returns a parameter as a boolean or def when absent
func (c *Configuration) Bool(key string, def bool) (bool, error) {
	v, ok := c.Parameters[key]
	if !ok || v == nil {
		return def, nil
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, NewConfigurationErrorf("INVALID_PARAMETER", "parameter %s of generator %q must be a boolean, got %q", ErrInvalidParameter, key, c.GeneratorName, s)
	}
	return b, nil
}
