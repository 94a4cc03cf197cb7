package voice

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"go.uber.org/zap"
)

func testPools() map[string][]models.Voice {
	return map[string][]models.Voice{
		"male": {
			{ID: "m1", Name: "M1", Gender: "male"},
			{ID: "m2", Name: "M2", Gender: "male"},
		},
		"female": {
			{ID: "f1", Name: "F1", Gender: "female"},
		},
		"neutral": {},
	}
}

func TestAllocatorRoundRobinWraps(t *testing.T) {
	a, err := NewAllocator(testPools(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	// Three male speakers against a pool of two must wrap to m1.
	got := []string{a.Next("male").ID, a.Next("male").ID, a.Next("male").ID}
	want := []string{"m1", "m2", "m1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round robin order: got %v, want %v", got, want)
	}
}

func TestAllocatorCursorsAreIndependent(t *testing.T) {
	a, err := NewAllocator(testPools(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	if v := a.Next("male"); v.ID != "m1" {
		t.Fatalf("expected m1, got %s", v.ID)
	}
	if v := a.Next("female"); v.ID != "f1" {
		t.Fatalf("expected f1, got %s", v.ID)
	}
	if v := a.Next("male"); v.ID != "m2" {
		t.Fatalf("female draw must not advance the male cursor, got %s", v.ID)
	}
}

func TestAllocatorEmptyBucketFallsBack(t *testing.T) {
	pools := map[string][]models.Voice{
		"male":    {},
		"female":  {{ID: "f1", Gender: "female"}},
		"neutral": {},
	}
	a, err := NewAllocator(pools, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	if v := a.Next("male"); v.ID != "f1" {
		t.Fatalf("expected fallback to female pool, got %s", v.ID)
	}
}

func TestAllocatorAllEmptyIsConfigError(t *testing.T) {
	pools := map[string][]models.Voice{"male": {}, "female": {}, "neutral": {}}
	if _, err := NewAllocator(pools, zap.NewNop()); err == nil {
		t.Fatal("expected configuration error for empty pools")
	}
}

func TestAssignIsDeterministic(t *testing.T) {
	genders := map[string]string{
		"SPEAKER_02": "male",
		"SPEAKER_00": "male",
		"SPEAKER_01": "female",
	}

	a1, _ := NewAllocator(testPools(), zap.NewNop())
	a2, _ := NewAllocator(testPools(), zap.NewNop())

	first := a1.Assign(genders)
	second := a2.Assign(genders)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("assignment not deterministic:\n%v\n%v", first, second)
	}
	if first["SPEAKER_00"].VoiceID != "m1" || first["SPEAKER_02"].VoiceID != "m2" {
		t.Fatalf("expected sorted-order allocation, got %v", first)
	}
}

func TestAssignWrapsForManySpeakers(t *testing.T) {
	genders := make(map[string]string)
	for i := 0; i < 5; i++ {
		genders[fmt.Sprintf("SPEAKER_%02d", i)] = "male"
	}

	a, _ := NewAllocator(testPools(), zap.NewNop())
	profiles := a.Assign(genders)

	if profiles["SPEAKER_00"].VoiceID != profiles["SPEAKER_02"].VoiceID {
		t.Fatalf("expected wrap to reuse voices: %v", profiles)
	}
	if profiles["SPEAKER_00"].VoiceID == profiles["SPEAKER_01"].VoiceID {
		t.Fatalf("adjacent speakers should differ while the pool lasts: %v", profiles)
	}
}
