package ops

import (
	"context"
	"math/rand"
	"testing"

	"genosim/internal/genome"
	"genosim/internal/observe"
	"genosim/internal/population"
	"genosim/internal/reproduction"
	"genosim/internal/sim"
	"genosim/internal/storage"
)

func fixture(t *testing.T, n int) (*population.Builder, *reproduction.Engine, []*population.Individual) {
	t.Helper()
	layout, err := genome.GenerateUnlinkedLayout(3, func() genome.Marker { return genome.NewSNP() })
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	builder, err := population.NewBuilder(population.NewIDSource(0), rand.New(rand.NewSource(17)))
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	engine, err := reproduction.NewEngine(builder)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	individuals, err := builder.Populate(&population.Species{Name: "t", Layout: layout}, n, 0, population.RandomAllele(builder.Rand))
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	return builder, engine, individuals
}

func TestReproduceAddsOffspringPerCycle(t *testing.T) {
	_, engine, individuals := fixture(t, 10)
	state := sim.NewState(individuals, []sim.Operator{Reproduce{Engine: engine, Offspring: 20}})
	if err := sim.StepCycle(context.Background(), state); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(state.Individuals) != 30 {
		t.Fatalf("unexpected population: got=%d want=30", len(state.Individuals))
	}
	for _, child := range state.Individuals[10:] {
		if child.CycleBorn != 0 || len(child.Genome) != 6 {
			t.Fatalf("unexpected child: %+v", child)
		}
	}
}

func TestReproduceSkipsWithSingleParent(t *testing.T) {
	_, engine, individuals := fixture(t, 1)
	state := sim.NewState(individuals, []sim.Operator{Reproduce{Engine: engine, Offspring: 5}})
	if err := sim.StepCycle(context.Background(), state); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(state.Individuals) != 1 {
		t.Fatalf("unexpected population: %d", len(state.Individuals))
	}
}

func TestReproduceRejectsNegativeOffspring(t *testing.T) {
	_, engine, individuals := fixture(t, 4)
	state := sim.NewState(individuals, []sim.Operator{Reproduce{Engine: engine, Offspring: -1}})
	if err := sim.StepCycle(context.Background(), state); err == nil {
		t.Fatal("expected negative offspring error")
	}
	if len(state.Individuals) != 4 || state.Cycle != 0 {
		t.Fatalf("failed cycle changed state: individuals=%d cycle=%d", len(state.Individuals), state.Cycle)
	}
}

func TestReproduceWithoutSexesUsesDistinctParents(t *testing.T) {
	_, engine, individuals := fixture(t, 2)
	for _, ind := range individuals {
		ind.Sex = genome.SexUnknown
	}
	state := sim.NewState(individuals, []sim.Operator{Reproduce{Engine: engine, Offspring: 3}})
	if err := sim.StepCycle(context.Background(), state); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(state.Individuals) != 5 {
		t.Fatalf("unexpected population: %d", len(state.Individuals))
	}
}

func TestAssignSexOnlyTouchesUnknown(t *testing.T) {
	builder, _, individuals := fixture(t, 4)
	individuals[0].Sex = genome.SexFemale
	individuals[1].Sex = genome.SexUnknown
	state := sim.NewState(individuals, []sim.Operator{AssignSex{Builder: builder}})
	if err := sim.StepCycle(context.Background(), state); err != nil {
		t.Fatalf("step: %v", err)
	}
	if individuals[0].Sex != genome.SexFemale {
		t.Fatal("assigned sex was overwritten")
	}
	if individuals[1].Sex == genome.SexUnknown {
		t.Fatal("unknown sex was not assigned")
	}
}

func TestCullByAge(t *testing.T) {
	_, _, individuals := fixture(t, 4)
	individuals[0].CycleBorn = -5
	individuals[1].Alive = false
	old := individuals[0]
	state := sim.NewState(individuals, nil)
	state.Cycle = 2
	if err := (CullByAge{MaxAge: 3}).Change(context.Background(), state); err != nil {
		t.Fatalf("cull: %v", err)
	}
	if len(state.Individuals) != 2 {
		t.Fatalf("unexpected survivors: %d", len(state.Individuals))
	}
	if old.Alive {
		t.Fatal("culled individual still alive")
	}
}

func TestCullToCapacity(t *testing.T) {
	builder, _, individuals := fixture(t, 12)
	state := sim.NewState(individuals, nil)
	op := CullToCapacity{Capacity: 5, Rand: builder.Rand}
	if err := op.Change(context.Background(), state); err != nil {
		t.Fatalf("cull: %v", err)
	}
	if len(state.Individuals) != 5 {
		t.Fatalf("unexpected survivors: %d", len(state.Individuals))
	}
	dead := 0
	for _, ind := range individuals {
		if !ind.Alive {
			dead++
		}
	}
	if dead != 7 {
		t.Fatalf("unexpected dead count: %d", dead)
	}
}

func TestPersistAndRecordSummaries(t *testing.T) {
	ctx := context.Background()
	_, _, individuals := fixture(t, 6)
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	operators := []sim.Operator{
		Persist{Store: store, RunID: "run-1", Every: 2},
		RecordSummaries{Store: store, RunID: "run-1"},
	}
	state, err := sim.DoNCycles(ctx, 3, individuals, operators)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state.Cycle != 4 {
		t.Fatalf("unexpected cycle: %d", state.Cycle)
	}

	latest, ok, err := store.LatestPopulation(ctx, "run-1")
	if err != nil || !ok || latest.Cycle != 2 {
		t.Fatalf("latest snapshot: ok=%v err=%v cycle=%d", ok, err, latest.Cycle)
	}
	if len(latest.Individuals) != 6 || len(latest.Individuals[0].Genome) != 6 {
		t.Fatalf("unexpected snapshot: %+v", latest)
	}
	summaries, ok, err := store.GetCycleSummaries(ctx, "run-1")
	if err != nil || !ok || len(summaries) != 4 {
		t.Fatalf("summaries: ok=%v err=%v n=%d", ok, err, len(summaries))
	}
}

func TestPublishSendsGlobalsCopy(t *testing.T) {
	broker := observe.NewBroker[map[string]any]()
	var received []map[string]any
	broker.Subscribe(func(v map[string]any) { received = append(received, v) })

	state := sim.NewState(nil, []sim.Operator{Publish{Broker: broker}})
	state.Globals["note"] = "a"
	if err := sim.StepCycle(context.Background(), state); err != nil {
		t.Fatalf("step: %v", err)
	}
	state.Globals["note"] = "b"
	if len(received) != 1 || received[0]["note"] != "a" {
		t.Fatalf("unexpected events: %+v", received)
	}
}
