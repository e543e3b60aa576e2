package client

import (
	"fmt"

	"github.com/atomiechen/MatSense/config"
)

// ConfigReply is a decoded CONFIG/RESTART/RESTART_FILE response: a status
// byte plus the effective configuration, YAML-decoded.
type ConfigReply struct {
	OK     bool
	Raw    []byte
	Config config.Config
}

// Config requests the server's current effective configuration.
func (c *Client) Config() (ConfigReply, error) {
	reply, err := c.t.roundTrip(encodeRequest(CmdConfig, ""), c.timeout)
	if err != nil {
		return ConfigReply{}, err
	}
	return decodeConfigReply(reply)
}

// Restart sends a YAML patch to be merged onto the server's current
// configuration (the patch's explicitly-set fields win; see
// config.Merge). An empty patch keeps the current configuration and simply
// restarts the processing pipeline.
func (c *Client) Restart(patch string) (ConfigReply, error) {
	reply, err := c.t.roundTrip(encodeRequest(CmdRestart, patch), c.timeout)
	if err != nil {
		return ConfigReply{}, err
	}
	return decodeConfigReply(reply)
}

// RestartFile behaves like Restart, but path names a YAML file on the
// server's own filesystem to read the patch from.
func (c *Client) RestartFile(path string) (ConfigReply, error) {
	reply, err := c.t.roundTrip(encodeRequest(CmdRestartFile, path), c.timeout)
	if err != nil {
		return ConfigReply{}, err
	}
	return decodeConfigReply(reply)
}

func decodeConfigReply(reply []byte) (ConfigReply, error) {
	ok, yamlText, err := decodeAck(reply)
	if err != nil {
		return ConfigReply{}, err
	}
	cfg, perr := config.ParseYAML([]byte(yamlText))
	if perr != nil {
		return ConfigReply{}, fmt.Errorf("client: decode config reply: %w", perr)
	}
	return ConfigReply{OK: ok, Raw: []byte(yamlText), Config: cfg}, nil
}
