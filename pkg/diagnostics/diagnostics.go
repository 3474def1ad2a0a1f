package diagnostics

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Warning is a recovered issue: the offending rule (or part of it) was skipped and the run went on
type Warning struct {
	RuleID  string
	Kind    string
	Message string
}

func (warning Warning) String() string {
	if warning.RuleID == "" {
		return fmt.Sprintf("%v: %v", warning.Kind, warning.Message)
	}
	return fmt.Sprintf("%v[%v]: %v", warning.Kind, warning.RuleID, warning.Message)
}

// Collector accumulates the warnings of one run. The zero value is ready to use.
type Collector struct {
	mutex    sync.Mutex
	warnings []Warning
}

func NewCollector() *Collector {
	return &Collector{}
}

func (collector *Collector) Warn(ruleID, kind, format string, args ...any) {
	warning := Warning{RuleID: ruleID, Kind: kind, Message: fmt.Sprintf(format, args...)}
	glog.Warning(warning.String())

	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.warnings = append(collector.warnings, warning)
}

// Warnings returns a copy of the collected warnings, in order
func (collector *Collector) Warnings() []Warning {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	return append([]Warning{}, collector.warnings...)
}

func (collector *Collector) Len() int {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	return len(collector.warnings)
}
