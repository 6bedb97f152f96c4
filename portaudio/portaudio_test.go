// +build portaudio

package portaudio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/esdr"
	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/portaudio"
)

func TestPlayback(t *testing.T) {
	env := block.DefaultEnv()
	env.Audio = portaudio.Open(0)
	g := graph.New()
	nodes := []graph.NodeID{
		g.AddNode(block.SoapySDR),
		g.AddNode(block.Shift),
		g.AddNode(block.Resampler),
		g.AddNode(block.FMDemodulator),
		g.AddNode(block.FilterResampler),
		g.AddNode(block.AudioOutput),
	}
	for i := 1; i < len(nodes); i++ {
		out, _ := g.NodeOutput(nodes[i-1], engine.OutputPort)
		in, _ := g.NodeInput(nodes[i], engine.InputPort)
		assert.Nil(t, g.Connect(out, in))
	}

	ctx := context.Background()
	p, err := esdr.NewCompiler(env).CompileAndStart(ctx, g)
	assert.Nil(t, err)
	assert.Nil(t, p.Stop(ctx))
}
