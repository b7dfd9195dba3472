package cron

import "testing"

func TestRegistryIgnoresNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &fakeJob{name: "a"}, nil)
	registry.Register(nil)
	registry.Register(&fakeJob{name: "b"})

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "a" || jobs[1].Name() != "b" {
		t.Fatalf("unexpected job order: %s, %s", jobs[0].Name(), jobs[1].Name())
	}
}
