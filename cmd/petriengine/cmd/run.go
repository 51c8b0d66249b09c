/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jt05610/petriengine/instance"
	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Initialize the sample net and drive it to completion",
	Long:  `Initialize the sample order net against the journal selected by JOURNAL_BACKEND (in-memory by default), let its automatic transitions fire, and print its final state.`,
	Run: func(cmd *cobra.Command, args []string) {
		n := sampleNet()
		instanceID := uuid.NewString()
		j, err := openJournal("petriengine_instances")
		if err != nil {
			fmt.Println("open journal:", err)
			return
		}
		inst := instance.New(instanceID, n, j, nil, logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- inst.Run(ctx) }()

		initCtx, initCancel := context.WithTimeout(ctx, 2*time.Second)
		defer initCancel()
		marking := map[net.PlaceID][]token.Token{
			1: {token.New(orderSchema, "order-1")},
		}
		reply, err := inst.Send(initCtx, instance.Initialize{Marking: marking})
		if err != nil {
			fmt.Println("initialize failed:", err)
			cancel()
			<-done
			return
		}
		fmt.Printf("%+v\n", reply)

		time.Sleep(300 * time.Millisecond)

		stateCtx, stateCancel := context.WithTimeout(ctx, 2*time.Second)
		defer stateCancel()
		reply, err = inst.Send(stateCtx, instance.GetState{})
		if err != nil {
			fmt.Println("get state failed:", err)
			cancel()
			<-done
			return
		}
		fmt.Printf("%+v\n", reply)

		cancel()
		<-done
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
