package store

import (
	"errors"
	"testing"

	"github.com/ayusman/abhinaya/internal/config"
)

func TestProfiles_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	tracking := config.DefaultTracking()
	tracking.Screen.XSensitivity = 1.2
	tracking.Blink.MinClosedFrames = 4

	p := &Profile{Name: "desk", Tracking: tracking}
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	byID, err := repo.GetByID(p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Name != "desk" || byID.Tracking != tracking {
		t.Errorf("GetByID() = %+v, want name desk and stored tracking", byID)
	}

	byName, err := repo.GetByName("desk")
	if err != nil || byName.ID != p.ID {
		t.Errorf("GetByName() = %+v, %v", byName, err)
	}
}

func TestProfiles_NotFound(t *testing.T) {
	repo := newTestStore(t).Profiles()

	if _, err := repo.GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByName("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByName error = %v, want ErrNotFound", err)
	}
	if err := repo.Update(&Profile{ID: "nope", Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestProfiles_DuplicateName(t *testing.T) {
	repo := newTestStore(t).Profiles()

	if err := repo.Create(&Profile{Name: "couch", Tracking: config.DefaultTracking()}); err != nil {
		t.Fatal(err)
	}
	err := repo.Create(&Profile{Name: "couch", Tracking: config.DefaultTracking()})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate Create error = %v, want ErrDuplicate", err)
	}

	other := &Profile{Name: "bed", Tracking: config.DefaultTracking()}
	if err := repo.Create(other); err != nil {
		t.Fatal(err)
	}
	other.Name = "couch"
	if err := repo.Update(other); !errors.Is(err, ErrDuplicate) {
		t.Errorf("renaming onto an existing name = %v, want ErrDuplicate", err)
	}
}

func TestProfiles_ListUpdateDelete(t *testing.T) {
	repo := newTestStore(t).Profiles()

	for _, name := range []string{"a", "b", "c"} {
		if err := repo.Create(&Profile{Name: name, Tracking: config.DefaultTracking()}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d profiles, want 3", len(list))
	}

	target := list[1]
	target.Name = "renamed"
	target.Tracking.Kalman.ProcessNoise = 0.1
	if err := repo.Update(target); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(target.ID)
	if got.Name != "renamed" || got.Tracking.Kalman.ProcessNoise != 0.1 {
		t.Errorf("after Update got %+v", got)
	}

	if err := repo.Delete(target.ID); err != nil {
		t.Fatal(err)
	}
	list, _ = repo.List()
	if len(list) != 2 {
		t.Errorf("List() after Delete returned %d profiles, want 2", len(list))
	}
}

func TestProfiles_PartialTrackingKeepsDefaults(t *testing.T) {
	s := newTestStore(t)

	_, err := s.DB().Exec(
		`INSERT INTO profiles (id, name, tracking) VALUES (?, ?, ?)`,
		"old", "legacy", `{"blink":{"ear_threshold":0.18,"min_closed_frames":6}}`,
	)
	if err != nil {
		t.Fatal(err)
	}

	p, err := s.Profiles().GetByID("old")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if p.Tracking.Blink.EARThreshold != 0.18 {
		t.Errorf("stored field lost: %+v", p.Tracking.Blink)
	}
	if p.Tracking.Screen != config.DefaultTracking().Screen {
		t.Errorf("missing fields should default, got %+v", p.Tracking.Screen)
	}
}

func TestActiveProfile(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.ActiveProfile(); !errors.Is(err, ErrNotFound) {
		t.Errorf("ActiveProfile() with none set = %v, want ErrNotFound", err)
	}
	if err := s.SetActiveProfile("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActiveProfile(ghost) = %v, want ErrNotFound", err)
	}

	p := &Profile{Name: "desk", Tracking: config.DefaultTracking()}
	s.Profiles().Create(p)

	if err := s.SetActiveProfile(p.ID); err != nil {
		t.Fatalf("SetActiveProfile() error = %v", err)
	}
	active, err := s.ActiveProfile()
	if err != nil || active.ID != p.ID {
		t.Errorf("ActiveProfile() = %+v, %v", active, err)
	}

	s.Profiles().Delete(p.ID)
	if _, err := s.ActiveProfile(); !errors.Is(err, ErrNotFound) {
		t.Errorf("ActiveProfile() after deleting it = %v, want ErrNotFound", err)
	}
}
