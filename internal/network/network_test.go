package network

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/micro-nova/templog/internal/models"
)

func TestProfileUUID_Deterministic(t *testing.T) {
	a := profileUUID("station", "home")
	b := profileUUID("station", "home")
	if a != b {
		t.Errorf("profileUUID not stable: %s != %s", a, b)
	}
	if profileUUID("station", "other") == a {
		t.Error("different networks share a profile UUID")
	}
	if profileUUID("ap", "home") == a {
		t.Error("station and ap profiles share a UUID")
	}
}

func TestStationSettings(t *testing.T) {
	s := stationSettings("wlan0", models.Credentials{NetworkName: "home", Secret: "secret123"})

	if got := s["connection"]["interface-name"].Value(); got != "wlan0" {
		t.Errorf("interface-name = %v", got)
	}
	ssid, _ := s["802-11-wireless"]["ssid"].Value().([]byte)
	if string(ssid) != "home" {
		t.Errorf("ssid = %q", ssid)
	}
	if got := s["802-11-wireless"]["mode"].Value(); got != "infrastructure" {
		t.Errorf("mode = %v", got)
	}
	sec, ok := s["802-11-wireless-security"]
	if !ok {
		t.Fatal("missing security section")
	}
	if sec["key-mgmt"].Value() != "wpa-psk" || sec["psk"].Value() != "secret123" {
		t.Errorf("security = %v", sec)
	}
	if s["ipv4"]["method"].Value() != "auto" {
		t.Errorf("ipv4 method = %v", s["ipv4"]["method"].Value())
	}
	// Variants must encode to the NetworkManager settings signature.
	if sig := dbus.SignatureOf(map[string]map[string]dbus.Variant(s)).String(); sig != "a{sa{sv}}" {
		t.Errorf("signature = %s", sig)
	}
}

func TestStationSettings_OpenNetwork(t *testing.T) {
	s := stationSettings("wlan0", models.Credentials{NetworkName: "cafe"})
	if _, ok := s["802-11-wireless-security"]; ok {
		t.Error("open network has a security section")
	}
	if _, ok := s["802-11-wireless"]["security"]; ok {
		t.Error("open network references a security section")
	}
}

func TestAccessPointSettings(t *testing.T) {
	s := accessPointSettings("wlan0", "templog-pi", "")
	if s["802-11-wireless"]["mode"].Value() != "ap" {
		t.Errorf("mode = %v", s["802-11-wireless"]["mode"].Value())
	}
	if s["ipv4"]["method"].Value() != "shared" {
		t.Errorf("ipv4 method = %v", s["ipv4"]["method"].Value())
	}
	if s["connection"]["autoconnect"].Value() != false {
		t.Error("access point profile must not autoconnect")
	}
	if _, ok := s["802-11-wireless-security"]; ok {
		t.Error("open AP has a security section")
	}
}

func TestAssociate_RejectsUnconfigured(t *testing.T) {
	n := NewNetworkManager("wlan0", 0)
	if err := n.Associate(context.Background(), models.Credentials{}); err == nil {
		t.Error("Associate() with empty name error = nil")
	}
}

func TestFakeAssociator_FailFirst(t *testing.T) {
	f := &FakeAssociator{FailFirst: 2}
	ctx := context.Background()
	creds := models.Credentials{NetworkName: "home"}
	for i, want := range []error{ErrFake, ErrFake, nil, nil} {
		if err := f.Associate(ctx, creds); !errors.Is(err, want) {
			t.Errorf("call %d error = %v, want %v", i, err, want)
		}
	}
	if len(f.Calls()) != 4 {
		t.Errorf("Calls() = %d, want 4", len(f.Calls()))
	}
}

func TestFakeClock(t *testing.T) {
	c := &FakeClock{FailFirst: 1}
	ctx := context.Background()
	if err := c.Sync(ctx); !errors.Is(err, ErrNotSynchronized) {
		t.Errorf("first Sync() error = %v", err)
	}
	if err := c.Sync(ctx); err != nil {
		t.Errorf("second Sync() error = %v", err)
	}
	c.SetAlwaysFail(true)
	if err := c.Sync(ctx); err == nil {
		t.Error("Sync() with AlwaysFail error = nil")
	}
	if c.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", c.Calls())
	}
}
