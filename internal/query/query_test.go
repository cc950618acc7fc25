package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_Immutable(t *testing.T) {
	args := map[string]string{"b": "2", "a": "1"}
	q := New(Params{
		Project:       "demo",
		Source:        "partner",
		RemoteIP:      "10.0.0.5",
		Signature:     "sig",
		Arguments:     args,
		Ressource:     "user",
		Method:        "get",
		RequestMethod: "GET",
	})

	args["a"] = "changed"
	v, _ := q.Argument("a")
	assert.Equal(t, "1", v, "constructor copies arguments")

	got := q.Arguments()
	got["b"] = "changed"
	v, _ = q.Argument("b")
	assert.Equal(t, "2", v, "accessor returns a copy")

	decoded := q.WithArguments(map[string]string{"a": "x"})
	v, _ = q.Argument("a")
	assert.Equal(t, "1", v)
	v, _ = decoded.Argument("a")
	assert.Equal(t, "x", v)
	assert.Equal(t, q.Source(), decoded.Source())
}

func TestQuery_Accessors(t *testing.T) {
	q := New(Params{Project: "demo", Source: "s", RemoteIP: "1.2.3.4", Signature: "x",
		Ressource: "user", Method: "get", RequestMethod: "POST",
		Arguments: map[string]string{"z": "1", "a": "2"}})

	assert.Equal(t, "demo", q.Project())
	assert.Equal(t, "1.2.3.4", q.RemoteIP())
	assert.Equal(t, "x", q.Signature())
	assert.Equal(t, "POST", q.RequestMethod())
	assert.Equal(t, "user_get", q.FunctionName())
	assert.Equal(t, []string{"a", "z"}, q.ArgumentNames())
	assert.NotContains(t, q.String(), "x,", "signature stays out of logs")
}

