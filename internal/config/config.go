// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/headview/internal/geo"
	"github.com/relabs-tech/headview/internal/remap"
	"github.com/relabs-tech/headview/internal/scene"
)

// Object is one OBJECT=name,lat,lon[,alt] entry.
type Object struct {
	Name string
	Lat  float64
	Lon  float64
	Alt  float64
}

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDRenderer string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDHUD      string

	// Topics
	TopicHeadView string
	TopicFOV      string
	TopicGPS      string
	TopicFrame    string

	// Camera location: "config" uses CAMERA_LAT/LON/ALT, "gps" waits for the
	// first valid fix on TOPIC_GPS.
	CameraSource string
	CameraLat    float64
	CameraLon    float64
	CameraAlt    float64
	haveCamera   bool

	// Objects. OBJECT_LAT/LON/ALT/NAME describe a single object; OBJECT may
	// be repeated for more.
	ObjectName string
	ObjectLat  float64
	ObjectLon  float64
	ObjectAlt  float64
	haveObject bool
	Objects    []Object

	// Camera intrinsics
	FOVDeg         float64
	Near           float64
	Far            float64
	ViewportWidth  int
	ViewportHeight int
	FrameInterval  int // milliseconds

	// Placement
	MetersPerUnit           float64
	DisplacementMode        geo.DisplacementMode
	ForwardDistance         float64
	MissingCoordinatePolicy scene.MissingCoordinatePolicy
	AxisRemap               remap.AxisRemap
	HeadingDeg              float64
	HeadRotation            scene.HeadRotationTarget
	MinDistance             float64 // meters, 0 = off
	MaxDistance             float64 // meters, 0 = off
	FarClampDistance        float64 // scene units, 0 = off
	CameraHeight            float64 // meters above the camera coordinate
	CenterRayDistance       float64 // scene units, 0 = off
	ArcSegments             int     // 0 = no curvature arcs

	// Head source for the producer: "mock" or "imu"
	HeadSource         string
	HeadSampleInterval int // milliseconds
	IMUSPIDevice       string
	IMUCSPin           string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Web Server
	WebServerPort int
	CaptureDir    string

	// HUD display
	DisplayI2CBus         string // i2creg bus name, empty for the first bus
	DisplayUpdateInterval int    // milliseconds
}

// Package-level singleton, set once by InitGlobal from a cmd main and read
// with Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional key at its default.
func Default() *Config {
	return &Config{
		MQTTClientIDRenderer:    "headview-renderer",
		MQTTClientIDProducer:    "headview-producer",
		MQTTClientIDGPS:         "headview-gps",
		MQTTClientIDConsole:     "headview-console",
		MQTTClientIDHUD:         "headview-hud",
		TopicHeadView:           "headview/sample",
		TopicFOV:                "headview/fov",
		TopicGPS:                "headview/gps",
		TopicFrame:              "headview/frame",
		CameraSource:            "config",
		FOVDeg:                  scene.DefaultFieldOfView,
		Near:                    1,
		Far:                     300,
		ViewportWidth:           1280,
		ViewportHeight:          720,
		FrameInterval:           33,
		MetersPerUnit:           1,
		DisplacementMode:        geo.ModeGeodesic,
		ForwardDistance:         100,
		MissingCoordinatePolicy: scene.ForwardOffset,
		AxisRemap:               remap.Default(),
		FarClampDistance:        250,
		CenterRayDistance:       100,
		ArcSegments:             16,
		HeadSource:              "mock",
		HeadSampleInterval:      20,
		IMUSPIDevice:            "/dev/spidev0.0",
		IMUCSPin:                "GPIO8",
		GPSBaudRate:             9600,
		WebServerPort:           8080,
		CaptureDir:              "captures",
		DisplayUpdateInterval:   500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default and validates the
// result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q: not finite", key, value)
	}
	return v, nil
}

func parsePositiveInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

func parseObject(value string) (Object, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Object{}, fmt.Errorf("OBJECT must be name,lat,lon[,alt], got %q", value)
	}
	o := Object{Name: strings.TrimSpace(parts[0])}
	var err error
	if o.Lat, err = parseFloat("OBJECT lat", strings.TrimSpace(parts[1])); err != nil {
		return Object{}, err
	}
	if o.Lon, err = parseFloat("OBJECT lon", strings.TrimSpace(parts[2])); err != nil {
		return Object{}, err
	}
	if len(parts) == 4 {
		if o.Alt, err = parseFloat("OBJECT alt", strings.TrimSpace(parts[3])); err != nil {
			return Object{}, err
		}
	}
	if err := (geo.Coordinate{Lat: o.Lat, Lon: o.Lon, Alt: o.Alt}).Validate(); err != nil {
		return Object{}, fmt.Errorf("OBJECT %q: %w", o.Name, err)
	}
	return o, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RENDERER":
		c.MQTTClientIDRenderer = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_HUD":
		c.MQTTClientIDHUD = value

	// Topics
	case "TOPIC_HEAD_VIEW":
		c.TopicHeadView = value
	case "TOPIC_FOV":
		c.TopicFOV = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_FRAME":
		c.TopicFrame = value

	// Camera location
	case "CAMERA_SOURCE":
		switch value {
		case "config", "gps":
			c.CameraSource = value
		default:
			return fmt.Errorf("CAMERA_SOURCE must be config or gps, got %q", value)
		}
	case "CAMERA_LAT":
		c.CameraLat, err = parseFloat(key, value)
		c.haveCamera = true
	case "CAMERA_LON":
		c.CameraLon, err = parseFloat(key, value)
		c.haveCamera = true
	case "CAMERA_ALT":
		c.CameraAlt, err = parseFloat(key, value)

	// Objects
	case "OBJECT_NAME":
		c.ObjectName = value
	case "OBJECT_LAT":
		c.ObjectLat, err = parseFloat(key, value)
		c.haveObject = true
	case "OBJECT_LON":
		c.ObjectLon, err = parseFloat(key, value)
		c.haveObject = true
	case "OBJECT_ALT":
		c.ObjectAlt, err = parseFloat(key, value)
	case "OBJECT":
		o, perr := parseObject(value)
		if perr != nil {
			return perr
		}
		c.Objects = append(c.Objects, o)

	// Camera intrinsics
	case "FOV_DEG":
		if c.FOVDeg, err = parseFloat(key, value); err == nil && (c.FOVDeg <= 0 || c.FOVDeg >= 180) {
			return fmt.Errorf("FOV_DEG must be in (0, 180), got %v", c.FOVDeg)
		}
	case "NEAR":
		c.Near, err = parseFloat(key, value)
	case "FAR":
		c.Far, err = parseFloat(key, value)
	case "VIEWPORT_WIDTH":
		c.ViewportWidth, err = parsePositiveInt(key, value)
	case "VIEWPORT_HEIGHT":
		c.ViewportHeight, err = parsePositiveInt(key, value)
	case "FRAME_INTERVAL":
		c.FrameInterval, err = parsePositiveInt(key, value)

	// Placement
	case "METERS_PER_UNIT":
		if c.MetersPerUnit, err = parseFloat(key, value); err == nil && c.MetersPerUnit <= 0 {
			return fmt.Errorf("METERS_PER_UNIT must be positive, got %v", c.MetersPerUnit)
		}
	case "DISPLACEMENT_MODE":
		if c.DisplacementMode, err = geo.ParseDisplacementMode(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	case "FORWARD_DISTANCE":
		c.ForwardDistance, err = parseFloat(key, value)
	case "MISSING_COORDINATE_POLICY":
		if c.MissingCoordinatePolicy, err = scene.ParseMissingCoordinatePolicy(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	case "AXIS_REMAP":
		if c.AxisRemap, err = remap.Parse(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	case "HEADING_DEG":
		c.HeadingDeg, err = parseFloat(key, value)
	case "HEAD_ROTATION":
		if c.HeadRotation, err = scene.ParseHeadRotationTarget(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	case "MIN_DISTANCE":
		c.MinDistance, err = parseFloat(key, value)
	case "MAX_DISTANCE":
		c.MaxDistance, err = parseFloat(key, value)
	case "FAR_CLAMP_DISTANCE":
		c.FarClampDistance, err = parseFloat(key, value)
	case "CAMERA_HEIGHT":
		c.CameraHeight, err = parseFloat(key, value)
	case "CENTER_RAY_DISTANCE":
		c.CenterRayDistance, err = parseFloat(key, value)
	case "ARC_SEGMENTS":
		n, aerr := strconv.Atoi(value)
		if aerr != nil {
			return fmt.Errorf("invalid ARC_SEGMENTS %q: %w", value, aerr)
		}
		if n < 0 {
			return fmt.Errorf("ARC_SEGMENTS must not be negative, got %d", n)
		}
		c.ArcSegments = n

	// Head source
	case "HEAD_SOURCE":
		switch value {
		case "mock", "imu":
			c.HeadSource = value
		default:
			return fmt.Errorf("HEAD_SOURCE must be mock or imu, got %q", value)
		}
	case "HEAD_SAMPLE_INTERVAL":
		c.HeadSampleInterval, err = parsePositiveInt(key, value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parsePositiveInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		port, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, perr)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port
	case "CAPTURE_DIR":
		c.CaptureDir = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parsePositiveInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks required fields and cross-field constraints.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.Near <= 0 || c.Far <= c.Near {
		return fmt.Errorf("need 0 < NEAR < FAR, got NEAR=%v FAR=%v", c.Near, c.Far)
	}
	if c.MinDistance < 0 || c.MaxDistance < 0 || c.FarClampDistance < 0 {
		return fmt.Errorf("MIN_DISTANCE, MAX_DISTANCE and FAR_CLAMP_DISTANCE must not be negative")
	}
	if c.CenterRayDistance < 0 {
		return fmt.Errorf("CENTER_RAY_DISTANCE must not be negative, got %v", c.CenterRayDistance)
	}
	if c.MaxDistance > 0 && c.MinDistance > c.MaxDistance {
		return fmt.Errorf("MIN_DISTANCE %v is above MAX_DISTANCE %v", c.MinDistance, c.MaxDistance)
	}
	if c.CameraSource == "config" && c.haveCamera {
		if err := c.CameraCoordinate().Validate(); err != nil {
			return fmt.Errorf("CAMERA_LAT/CAMERA_LON: %w", err)
		}
	}
	if c.haveObject {
		if err := (geo.Coordinate{Lat: c.ObjectLat, Lon: c.ObjectLon, Alt: c.ObjectAlt}).Validate(); err != nil {
			return fmt.Errorf("OBJECT_LAT/OBJECT_LON: %w", err)
		}
	}
	if c.HeadSource == "imu" && (c.IMUSPIDevice == "" || c.IMUCSPin == "") {
		return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required when HEAD_SOURCE=imu")
	}
	return nil
}

// HasCamera reports whether a fixed camera location was configured.
func (c *Config) HasCamera() bool {
	return c.CameraSource == "config" && c.haveCamera
}

// CameraCoordinate is the configured camera location.
func (c *Config) CameraCoordinate() geo.Coordinate {
	return geo.Coordinate{Lat: c.CameraLat, Lon: c.CameraLon, Alt: c.CameraAlt}
}

// ObjectList returns every configured object: the single OBJECT_* object
// first, if set, then each OBJECT entry.
func (c *Config) ObjectList() []Object {
	var out []Object
	if c.haveObject {
		name := c.ObjectName
		if name == "" {
			name = "object"
		}
		out = append(out, Object{Name: name, Lat: c.ObjectLat, Lon: c.ObjectLon, Alt: c.ObjectAlt})
	}
	return append(out, c.Objects...)
}

// InitGlobal loads the config file once for the whole process.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global config; nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
