package main

import (
	"fmt"
	"time"

	"github.com/atomiechen/MatSense/client"
)

// connFlags are the socket-selection flags shared (redeclared, per mbcli's
// own texture of not factoring common flags into a shared embedded struct)
// across every client-side sub-command.
type connFlags struct {
	ServerAddress string  `short:"a" long:"address" description:"service socket address (host:port, or a UNIX path)"`
	ClientAddress string  `long:"client_address" description:"this client's own socket address"`
	UDP           bool    `short:"u" long:"udp" description:"use UDP instead of a UNIX domain datagram socket"`
	Shape         []int   `short:"n" long:"shape" default:"16" description:"sensor shape (1 or 2 ints)"`
	Timeout       float64 `short:"t" long:"timeout" default:"2" description:"reply timeout in seconds"`
}

func (f connFlags) dial() (*client.Client, error) {
	rows, cols := f.Shape[0], f.Shape[0]
	if len(f.Shape) == 2 {
		cols = f.Shape[1]
	}
	return client.New(client.Options{
		Total:         rows * cols,
		UDP:           f.UDP,
		ClientAddress: f.ClientAddress,
		ServerAddress: f.ServerAddress,
		Timeout:       time.Duration(f.Timeout * float64(time.Second)),
	})
}

func printFrame(label string, f client.Frame) {
	fmt.Printf("%s frame_idx=%d\n", label, f.FrameIdx)
	for _, v := range f.Values {
		fmt.Printf("  %v\n", v)
	}
}

type DataCommand struct {
	connFlags
}

func (c *DataCommand) Execute(args []string) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	f, err := cl.Data()
	if err != nil {
		return err
	}
	printFrame("data", f)
	return nil
}

type RawCommand struct {
	connFlags
}

func (c *RawCommand) Execute(args []string) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	f, err := cl.Raw()
	if err != nil {
		return err
	}
	printFrame("raw", f)
	return nil
}

type IMUCommand struct {
	connFlags
}

func (c *IMUCommand) Execute(args []string) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	f, err := cl.DataIMU()
	if err != nil {
		return err
	}
	printFrame("imu", f)
	return nil
}

type RecCommand struct {
	connFlags
	Raw  bool `long:"raw" description:"record raw frames instead of processed ones"`
	Stop bool `long:"stop" description:"stop any in-progress recording instead of starting one"`
	Args struct {
		Filename string `description:"file to record to, ignored with --stop"`
	} `positional-args:"yes"`
}

func (c *RecCommand) Execute(args []string) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()

	if c.Stop {
		return cl.RecStop()
	}
	var ack client.RecAck
	if c.Raw {
		ack, err = cl.RecRaw(c.Args.Filename)
	} else {
		ack, err = cl.RecData(c.Args.Filename)
	}
	if err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("recording failed to start")
	}
	fmt.Printf("recording to %s\n", ack.Filename)
	return nil
}

type ConfigCommand struct {
	connFlags
}

func (c *ConfigCommand) Execute(args []string) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	reply, err := cl.Config()
	if err != nil {
		return err
	}
	fmt.Print(string(reply.Raw))
	return nil
}

type RestartCommand struct {
	connFlags
	File bool `long:"file" description:"treat the positional argument as a server-side file path rather than an inline YAML patch"`
	Args struct {
		Patch string `description:"YAML patch (or file path with --file)"`
	} `positional-args:"yes"`
}

func (c *RestartCommand) Execute(args []string) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()

	var reply client.ConfigReply
	if c.File {
		reply, err = cl.RestartFile(c.Args.Patch)
	} else {
		reply, err = cl.Restart(c.Args.Patch)
	}
	if err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("restart rejected, configuration unchanged")
	}
	fmt.Print(string(reply.Raw))
	return nil
}

type CloseCommand struct {
	connFlags
}

func (c *CloseCommand) Execute(args []string) error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	return cl.CloseServer()
}
