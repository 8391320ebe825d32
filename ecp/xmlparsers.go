package ecp

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeviceInfo holds the subset of the device-info query we care about.
type DeviceInfo struct {
	ModelName       string
	ModelNumber     string
	SerialNumber    string
	SoftwareVersion string
	SoftwareBuild   string
	PowerMode       string
	FriendlyName    string
	DeviceType      string
}

type deviceInfoNode struct {
	XMLName         xml.Name `xml:"device-info"`
	ModelName       string   `xml:"model-name"`
	ModelNumber     string   `xml:"model-number"`
	SerialNumber    string   `xml:"serial-number"`
	SoftwareVersion string   `xml:"software-version"`
	SoftwareBuild   string   `xml:"software-build"`
	PowerMode       string   `xml:"power-mode"`
	FriendlyName    string   `xml:"friendly-device-name"`
	IsTV            bool     `xml:"is-tv"`
}

func parseDeviceInfo(body []byte) (*DeviceInfo, error) {
	var node deviceInfoNode
	if err := xml.Unmarshal(body, &node); err != nil {
		return nil, fmt.Errorf("%w: parseDeviceInfo unmarshal error: %v", ErrMalformedResponse, err)
	}

	deviceType := "box"
	if node.IsTV {
		deviceType = "tv"
	}

	return &DeviceInfo{
		ModelName:       node.ModelName,
		ModelNumber:     node.ModelNumber,
		SerialNumber:    node.SerialNumber,
		SoftwareVersion: node.SoftwareVersion,
		SoftwareBuild:   node.SoftwareBuild,
		PowerMode:       node.PowerMode,
		FriendlyName:    node.FriendlyName,
		DeviceType:      deviceType,
	}, nil
}

// PlayerStatus holds the parsed media-player query. The active
// application is the plugin the player reports; it is empty when
// nothing is rendering.
type PlayerStatus struct {
	State    string
	AppID    string
	AppName  string
	Position *time.Duration
	Duration *time.Duration
	Live     bool

	// Volume and Muted are reported by newer firmware only.
	Volume *int
	Muted  *bool
}

type playerNode struct {
	XMLName xml.Name `xml:"player"`
	Error   string   `xml:"error,attr"`
	State   string   `xml:"state,attr"`
	Plugin  *struct {
		ID   string `xml:"id,attr"`
		Name string `xml:"name,attr"`
	} `xml:"plugin"`
	Position string `xml:"position"`
	Duration string `xml:"duration"`
	IsLive   string `xml:"is_live"`
	Volume   string `xml:"volume"`
	Muted    string `xml:"muted"`
}

func parsePlayerStatus(body []byte) (*PlayerStatus, error) {
	var node playerNode
	if err := xml.Unmarshal(body, &node); err != nil {
		return nil, fmt.Errorf("%w: parsePlayerStatus unmarshal error: %v", ErrMalformedResponse, err)
	}

	status := &PlayerStatus{
		State:    node.State,
		Position: parseMillis(node.Position),
		Duration: parseMillis(node.Duration),
		Live:     strings.EqualFold(strings.TrimSpace(node.IsLive), "true"),
	}

	if node.Plugin != nil {
		status.AppID = node.Plugin.ID
		status.AppName = node.Plugin.Name
	}

	if v, err := strconv.Atoi(strings.TrimSpace(node.Volume)); err == nil {
		status.Volume = &v
	}

	switch strings.ToLower(strings.TrimSpace(node.Muted)) {
	case "true":
		muted := true
		status.Muted = &muted
	case "false":
		muted := false
		status.Muted = &muted
	}

	return status, nil
}

// parseMillis parses the "373674 ms" position/duration format. Nil is
// returned for anything else, including the empty values the device
// sends while idle.
func parseMillis(s string) *time.Duration {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "ms"))
	if s == "" {
		return nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}

	d := time.Duration(ms) * time.Millisecond
	return &d
}

// App is one installed application as reported by the apps query.
// Icon is the URL of the app icon on the device.
type App struct {
	ID      string
	Name    string
	Type    string
	Version string
	Icon    string
}

type appsNode struct {
	XMLName xml.Name `xml:"apps"`
	Apps    []struct {
		ID      string `xml:"id,attr"`
		Type    string `xml:"type,attr"`
		Version string `xml:"version,attr"`
		Name    string `xml:",chardata"`
	} `xml:"app"`
}

func parseApps(body []byte) ([]App, error) {
	var node appsNode
	if err := xml.Unmarshal(body, &node); err != nil {
		return nil, fmt.Errorf("%w: parseApps unmarshal error: %v", ErrMalformedResponse, err)
	}

	apps := make([]App, 0, len(node.Apps))
	for _, a := range node.Apps {
		apps = append(apps, App{
			ID:      a.ID,
			Name:    strings.TrimSpace(a.Name),
			Type:    a.Type,
			Version: a.Version,
		})
	}

	return apps, nil
}
