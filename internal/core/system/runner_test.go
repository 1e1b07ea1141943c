package system

import (
	"testing"
	"time"
)

type probe struct {
	phase Phase
	log   *[]string
	name  string
}

func (p *probe) Phase() Phase { return p.phase }
func (p *probe) Update(time.Duration) {
	*p.log = append(*p.log, p.name)
}

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&probe{phase: PhaseCleanup, log: &log, name: "cleanup"})
	r.Register(&probe{phase: PhaseConnection, log: &log, name: "conn"})
	r.Register(&probe{phase: PhaseSimulate, log: &log, name: "sim"})

	r.Tick(time.Millisecond)
	want := []string{"conn", "sim", "cleanup"}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("order %v, want %v", log, want)
		}
	}
}

func TestRunnerStableWithinPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&probe{phase: PhaseConnection, log: &log, name: "first"})
	r.Register(&probe{phase: PhaseConnection, log: &log, name: "second"})

	r.Tick(time.Millisecond)
	if log[0] != "first" || log[1] != "second" {
		t.Fatalf("registration order not preserved within phase: %v", log)
	}
}

func TestRunnerLateRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&probe{phase: PhaseSimulate, log: &log, name: "sim"})
	r.Tick(time.Millisecond)

	r.Register(&probe{phase: PhaseConnection, log: &log, name: "conn"})
	log = log[:0]
	r.Tick(time.Millisecond)
	if log[0] != "conn" || log[1] != "sim" {
		t.Fatalf("late registration broke ordering: %v", log)
	}
}
