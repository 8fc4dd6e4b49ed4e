package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/micro-nova/templog/internal/models"
)

const (
	nmDest          = "org.freedesktop.NetworkManager"
	nmPath          = "/org/freedesktop/NetworkManager"
	nmSettingsPath  = "/org/freedesktop/NetworkManager/Settings"
	nmIface         = "org.freedesktop.NetworkManager"
	nmSettingsIface = "org.freedesktop.NetworkManager.Settings"
	nmConnIface     = "org.freedesktop.NetworkManager.Settings.Connection"
	nmActiveIface   = "org.freedesktop.NetworkManager.Connection.Active"

	// NMActiveConnectionState values.
	nmActiveActivating   = 1
	nmActiveActivated    = 2
	nmActiveDeactivating = 3
	nmActiveDeactivated  = 4
)

// profileNamespace seeds the name-based UUIDs of the profiles this daemon
// owns, so the same network always maps to the same profile.
var profileNamespace = uuid.MustParse("0f5b7f0c-4d43-4c1e-9a39-6a1f0d2b7e11")

// NetworkManager implements Associator over NetworkManager's D-Bus API.
type NetworkManager struct {
	iface        string
	timeout      time.Duration
	pollInterval time.Duration
}

// NewNetworkManager returns an Associator for the given wireless interface.
// activateTimeout bounds the wait for a single activation.
func NewNetworkManager(iface string, activateTimeout time.Duration) *NetworkManager {
	if activateTimeout <= 0 {
		activateTimeout = 30 * time.Second
	}
	return &NetworkManager{iface: iface, timeout: activateTimeout, pollInterval: 500 * time.Millisecond}
}

// Associate activates the station profile for creds.
func (n *NetworkManager) Associate(ctx context.Context, creds models.Credentials) error {
	if !creds.IsConfigured() {
		return fmt.Errorf("network: no network name")
	}
	settings := stationSettings(n.iface, creds)
	return n.activate(ctx, settings)
}

// StartAccessPoint activates a shared-IPv4 access point profile.
func (n *NetworkManager) StartAccessPoint(ctx context.Context, ssid, secret string) error {
	settings := accessPointSettings(n.iface, ssid, secret)
	return n.activate(ctx, settings)
}

func (n *NetworkManager) activate(ctx context.Context, settings connectionSettings) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("network: connect system bus: %w", err)
	}
	defer conn.Close()

	nm := conn.Object(nmDest, nmPath)
	var device dbus.ObjectPath
	if err := nm.CallWithContext(ctx, nmIface+".GetDeviceByIpIface", 0, n.iface).Store(&device); err != nil {
		return fmt.Errorf("network: find device %s: %w", n.iface, err)
	}

	id := settings["connection"]["uuid"].Value().(string)
	name := settings["connection"]["id"].Value().(string)
	var active dbus.ObjectPath

	var existing dbus.ObjectPath
	err = conn.Object(nmDest, nmSettingsPath).
		CallWithContext(ctx, nmSettingsIface+".GetConnectionByUuid", 0, id).Store(&existing)
	if err == nil {
		// Same profile as a previous attempt: refresh it in place.
		if err := conn.Object(nmDest, existing).CallWithContext(ctx, nmConnIface+".Update", 0, settings).Err; err != nil {
			return fmt.Errorf("network: update profile %s: %w", name, err)
		}
		if err := nm.CallWithContext(ctx, nmIface+".ActivateConnection", 0, existing, device, dbus.ObjectPath("/")).Store(&active); err != nil {
			return fmt.Errorf("network: activate %s: %w", name, err)
		}
	} else {
		var created dbus.ObjectPath
		if err := nm.CallWithContext(ctx, nmIface+".AddAndActivateConnection", 0, settings, device, dbus.ObjectPath("/")).Store(&created, &active); err != nil {
			return fmt.Errorf("network: add %s: %w", name, err)
		}
	}

	slog.Debug("network: activating", "profile", name, "active", active)
	return n.waitActivated(ctx, conn, active, name)
}

func (n *NetworkManager) waitActivated(ctx context.Context, conn *dbus.Conn, active dbus.ObjectPath, name string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	obj := conn.Object(nmDest, active)
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()
	for {
		v, err := obj.GetProperty(nmActiveIface + ".State")
		if err != nil {
			// The active connection object disappears when activation fails.
			return fmt.Errorf("%w: %s: %v", ErrActivationFailed, name, err)
		}
		state, _ := v.Value().(uint32)
		switch state {
		case nmActiveActivated:
			slog.Info("network: connection activated", "profile", name)
			return nil
		case nmActiveDeactivating, nmActiveDeactivated:
			return fmt.Errorf("%w: %s deactivated", ErrActivationFailed, name)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrActivationFailed, name, ctx.Err())
		case <-ticker.C:
		}
	}
}

type connectionSettings map[string]map[string]dbus.Variant

// profileUUID derives the profile UUID from its role and network name.
func profileUUID(role, ssid string) string {
	return uuid.NewSHA1(profileNamespace, []byte(role+":"+ssid)).String()
}

func stationSettings(iface string, creds models.Credentials) connectionSettings {
	s := connectionSettings{
		"connection": {
			"id":             dbus.MakeVariant("templog-" + creds.NetworkName),
			"uuid":           dbus.MakeVariant(profileUUID("station", creds.NetworkName)),
			"type":           dbus.MakeVariant("802-11-wireless"),
			"interface-name": dbus.MakeVariant(iface),
			"autoconnect":    dbus.MakeVariant(true),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(creds.NetworkName)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {"method": dbus.MakeVariant("auto")},
		"ipv6": {"method": dbus.MakeVariant("auto")},
	}
	addSecurity(s, creds.Secret)
	return s
}

func accessPointSettings(iface, ssid, secret string) connectionSettings {
	s := connectionSettings{
		"connection": {
			"id":             dbus.MakeVariant("templog-setup"),
			"uuid":           dbus.MakeVariant(profileUUID("ap", ssid)),
			"type":           dbus.MakeVariant("802-11-wireless"),
			"interface-name": dbus.MakeVariant(iface),
			"autoconnect":    dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("ap"),
			"band": dbus.MakeVariant("bg"),
		},
		"ipv4": {"method": dbus.MakeVariant("shared")},
		"ipv6": {"method": dbus.MakeVariant("ignore")},
	}
	addSecurity(s, secret)
	return s
}

// addSecurity adds WPA-PSK settings; an empty secret leaves the network open.
func addSecurity(s connectionSettings, secret string) {
	if secret == "" {
		return
	}
	s["802-11-wireless"]["security"] = dbus.MakeVariant("802-11-wireless-security")
	s["802-11-wireless-security"] = map[string]dbus.Variant{
		"key-mgmt": dbus.MakeVariant("wpa-psk"),
		"psk":      dbus.MakeVariant(secret),
	}
}

var _ Associator = (*NetworkManager)(nil)
