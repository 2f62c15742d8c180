package mock

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/pipe"
)

const logPrefix = "mock:rules"

// RuleSet is the YAML document of a rules file.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Rule applies to every call of Method.
type Rule struct {
	Method   string   `yaml:"method"`
	Respond  *Outcome `yaml:"respond,omitempty"`
	Rewrite  *Rewrite `yaml:"rewrite,omitempty"`
	Override *Outcome `yaml:"override,omitempty"`
}

// Outcome is a canned or overriding response. Unset fields keep the original
// value when overriding.
type Outcome struct {
	Code *int                   `yaml:"code,omitempty"`
	Msg  *string                `yaml:"msg,omitempty"`
	Data map[string]interface{} `yaml:"data,omitempty"`
}

// Rewrite changes a call before dispatch. Params are merged over the
// original params.
type Rewrite struct {
	Method string                 `yaml:"method,omitempty"`
	Params map[string]interface{} `yaml:"params,omitempty"`
}

// RuleInterceptor answers and rewrites calls from a rule set.
type RuleInterceptor struct {
	rules map[string]Rule
}

// NewRuleInterceptor indexes rules by method. Later rules for a method replace
// earlier ones.
func NewRuleInterceptor(set RuleSet) (*RuleInterceptor, error) {
	ri := &RuleInterceptor{rules: make(map[string]Rule, len(set.Rules))}
	for i, r := range set.Rules {
		if r.Method == "" {
			return nil, fmt.Errorf("%s - rule %d has no method", logPrefix, i)
		}
		if r.Respond == nil && r.Rewrite == nil && r.Override == nil {
			return nil, fmt.Errorf("%s - rule %d for %s has no action", logPrefix, i, r.Method)
		}
		ri.rules[r.Method] = r
	}
	return ri, nil
}

// ParseRules builds a RuleInterceptor from YAML.
func ParseRules(data []byte) (*RuleInterceptor, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%s - failed to parse rules: %w", logPrefix, err)
	}
	return NewRuleInterceptor(set)
}

// LoadRules reads and parses a rules file.
func LoadRules(path string) (*RuleInterceptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read rules file %s: %w", logPrefix, path, err)
	}
	ri, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d mock rule(s) from %s", logPrefix, ri.Len(), path))
	return ri, nil
}

// Len returns the number of methods with a rule.
func (ri *RuleInterceptor) Len() int {
	return len(ri.rules)
}

// InterceptBridgeCall implements pipe.Interceptor.
func (ri *RuleInterceptor) InterceptBridgeCall(call pipe.Call) pipe.Call {
	r, ok := ri.rules[call.MethodName]
	if !ok || r.Rewrite == nil {
		return call
	}
	if r.Rewrite.Method != "" {
		call.MethodName = r.Rewrite.Method
	}
	if len(r.Rewrite.Params) > 0 {
		merged := make(map[string]interface{}, len(call.Params)+len(r.Rewrite.Params))
		for k, v := range call.Params {
			merged[k] = v
		}
		for k, v := range r.Rewrite.Params {
			merged[k] = v
		}
		call.Params = merged
	}
	return call
}

// InvokeBridgeResult implements pipe.Interceptor.
func (ri *RuleInterceptor) InvokeBridgeResult(call pipe.Call) (pipe.Response, bool) {
	r, ok := ri.rules[call.MethodName]
	if !ok || r.Respond == nil {
		return pipe.Response{}, false
	}
	return r.Respond.apply(pipe.Response{Status: method.OK()}), true
}

// InterceptBridgeResult implements pipe.Interceptor.
func (ri *RuleInterceptor) InterceptBridgeResult(call pipe.Call, resp pipe.Response) pipe.Response {
	r, ok := ri.rules[call.MethodName]
	if !ok || r.Override == nil {
		return resp
	}
	return r.Override.apply(resp)
}

func (o *Outcome) apply(resp pipe.Response) pipe.Response {
	if o.Code != nil {
		resp.Status.Code = method.Code(*o.Code)
	}
	if o.Msg != nil {
		resp.Status.Message = *o.Msg
	}
	if o.Data != nil {
		data := make(map[string]interface{}, len(o.Data))
		for k, v := range o.Data {
			data[k] = v
		}
		resp.Data = data
	}
	return resp
}
