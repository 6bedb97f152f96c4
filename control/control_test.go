package control_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pipelined/esdr"
	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/control"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/mock"
	"github.com/pipelined/esdr/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type client struct {
	t      *testing.T
	server *httptest.Server
}

func newClient(t *testing.T) (*client, *[]*mock.Engine) {
	engines := &[]*mock.Engine{}
	compiler := esdr.NewCompiler(block.DefaultEnv(), esdr.WithEngine(func() esdr.Engine {
		e := mock.NewEngine()
		*engines = append(*engines, e)
		return e
	}))
	s := session.New(graph.New(), compiler)
	srv := httptest.NewServer(control.New(s))
	t.Cleanup(func() {
		srv.Close()
		s.Close(context.Background())
	})
	return &client{t: t, server: srv}, engines
}

func (c *client) do(method, path string, body, resp interface{}) int {
	c.t.Helper()
	var b bytes.Buffer
	if body != nil {
		require.Nil(c.t, json.NewEncoder(&b).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &b)
	require.Nil(c.t, err)
	r, err := c.server.Client().Do(req)
	require.Nil(c.t, err)
	defer r.Body.Close()
	if resp != nil {
		require.Nil(c.t, json.NewDecoder(r.Body).Decode(resp))
	}
	return r.StatusCode
}

func (c *client) addNode(k block.Kind) graph.NodeID {
	c.t.Helper()
	var ref control.NodeRef
	assert.Equal(c.t, http.StatusCreated, c.do(http.MethodPost, "/nodes", control.AddNodeRequest{Kind: k}, &ref))
	return ref.ID
}

func (c *client) connect(src, dst graph.NodeID) int {
	c.t.Helper()
	return c.do(http.MethodPost, "/edges", control.ConnectRequest{
		Source: control.PortRef{Node: src, Port: "out"},
		Dest:   control.PortRef{Node: dst, Port: "in"},
	}, nil)
}

func TestKinds(t *testing.T) {
	c, _ := newClient(t)
	var kinds []control.KindView
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/kinds", nil, &kinds))
	assert.Equal(t, len(block.Kinds()), len(kinds))
	assert.Equal(t, "Soapy SDR", kinds[0].Name)
	assert.Equal(t, control.PortView{
		Name:      "freq",
		Direction: "input",
		Kind:      "scalar",
		Default:   90900000,
		Updatable: true,
	}, kinds[0].Ports[1])
}

func TestEditAndRun(t *testing.T) {
	c, engines := newClient(t)
	source := c.addNode(block.SoapySDR)
	shift := c.addNode(block.Shift)
	sink := c.addNode(block.AudioOutput)
	assert.Equal(t, http.StatusCreated, c.connect(source, shift))

	var g control.GraphView
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/graph", nil, &g))
	assert.Equal(t, 3, len(g.Nodes))
	assert.Equal(t, 1, len(g.Edges))
	assert.False(t, g.Running)
	assert.Equal(t, source, g.Nodes[0].ID)
	assert.Equal(t, block.SoapySDR, g.Nodes[0].Kind)
	assert.Equal(t, "freq", g.Nodes[0].Inputs[0].Name)
	assert.Equal(t, 90900000.0, *g.Nodes[0].Inputs[0].Value)
	assert.NotNil(t, g.Nodes[1].Inputs[0].Source)

	// Shift produces complex samples, Audio Output consumes real ones
	assert.Equal(t, http.StatusCreated, c.connect(shift, sink))
	var e control.ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, c.do(http.MethodPost, "/run", nil, &e))
	assert.Contains(t, e.Error, esdr.ErrPortTypeMismatch.Error())

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/nodes/"+sink.String(), nil, nil))
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/run", nil, nil))
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/run", nil, nil))
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/graph", nil, &g))
	assert.True(t, g.Running)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPut, "/nodes/"+source.String()+"/scalars/freq", control.ScalarRequest{Value: 100000000}, nil))
	require.Equal(t, 1, len(*engines))
	calls := (*engines)[0].Handle.Calls()
	require.Equal(t, 1, len(calls))
	assert.Equal(t, float64(100000000+block.DefaultFreqOffset), calls[0].Value)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/stop", nil, nil))
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/stop", nil, nil))
}

func TestErrors(t *testing.T) {
	c, _ := newClient(t)
	shift := c.addNode(block.Shift)
	var tests = []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{
			name:   "unknown kind",
			method: http.MethodPost,
			path:   "/nodes",
			body:   map[string]string{"kind": "Radio"},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing kind",
			method: http.MethodPost,
			path:   "/nodes",
			body:   map[string]string{},
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid node",
			method: http.MethodDelete,
			path:   "/nodes/node",
			status: http.StatusNotFound,
		},
		{
			name:   "missing node",
			method: http.MethodDelete,
			path:   "/nodes/100v1",
			status: http.StatusNotFound,
		},
		{
			name:   "unknown port",
			method: http.MethodPost,
			path:   "/edges",
			body: control.ConnectRequest{
				Source: control.PortRef{Node: shift, Port: "out"},
				Dest:   control.PortRef{Node: shift, Port: "freq"},
			},
			status: http.StatusNotFound,
		},
		{
			name:   "unknown scalar",
			method: http.MethodPut,
			path:   "/nodes/" + shift.String() + "/scalars/freq",
			body:   control.ScalarRequest{Value: 1},
			status: http.StatusNotFound,
		},
		{
			name:   "stream input",
			method: http.MethodPut,
			path:   "/nodes/" + shift.String() + "/scalars/in",
			body:   control.ScalarRequest{Value: 1},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "invalid body",
			method: http.MethodPut,
			path:   "/nodes/" + shift.String() + "/scalars/in",
			body:   "value",
			status: http.StatusBadRequest,
		},
		{
			name:   "stop idle",
			method: http.MethodPost,
			path:   "/stop",
			status: http.StatusConflict,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var e control.ErrorResponse
			assert.Equal(t, test.status, c.do(test.method, test.path, test.body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}

	// rejected requests don't change the graph
	var g control.GraphView
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/graph", nil, &g))
	assert.Equal(t, 1, len(g.Nodes))
	assert.Equal(t, shift, g.Nodes[0].ID)
}
