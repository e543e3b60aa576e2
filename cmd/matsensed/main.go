// Command matsensed is the MatSense entrypoint: it runs the acquisition/
// processing/service pipeline (the "serve" command), or drives a running
// instance as a client (the "data"/"raw"/"rec"/"config"/"restart"/"close"
// commands). Grounded on rolfl-modbus/mbcli/mbcli.go's top-level parser and
// per-verb command-struct layout.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// CLICommand is the top-level option group. Each sub-command declares its
// own flags rather than sharing a parent set, matching mbcli's own
// CoilGetCommands/CoilSetCommands redundancy.
type CLICommand struct {
	Serve   ServeCommand   `command:"serve" description:"Run the acquisition/processing/service pipeline"`
	Data    DataCommand    `command:"data" description:"Fetch one processed frame from a running service"`
	Raw     RawCommand     `command:"raw" description:"Fetch one raw frame from a running service"`
	IMU     IMUCommand     `command:"imu" description:"Fetch one IMU sample from a running service"`
	Rec     RecCommand     `command:"rec" description:"Start or stop recording on a running service"`
	Config  ConfigCommand  `command:"config" description:"Fetch the running service's effective configuration"`
	Restart RestartCommand `command:"restart" description:"Send a YAML configuration patch and restart the pipeline"`
	Close   CloseCommand   `command:"close" description:"Shut down a running service"`
}

func main() {
	clicmd := CLICommand{}
	parser := flags.NewParser(&clicmd, flags.HelpFlag|flags.PassDoubleDash)

	if _, err := parser.Parse(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
