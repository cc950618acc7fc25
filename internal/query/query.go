// Package query defines the immutable request value passed through the
// check pipeline and the dispatcher.
package query

import (
	"fmt"
	"sort"
)

// Query is one inbound request. It is built once by the transport layer and
// never modified; WithArguments returns a copy.
type Query struct {
	project       string
	source        string
	remoteIP      string
	signature     string
	arguments     map[string]string
	ressource     string
	method        string
	requestMethod string
}

// Params holds the fields used to build a Query.
type Params struct {
	Project       string
	Source        string
	RemoteIP      string
	Signature     string
	Arguments     map[string]string
	Ressource     string
	Method        string
	RequestMethod string
}

// New builds a Query. Arguments are copied.
func New(p Params) Query {
	return Query{
		project:       p.Project,
		source:        p.Source,
		remoteIP:      p.RemoteIP,
		signature:     p.Signature,
		arguments:     copyArguments(p.Arguments),
		ressource:     p.Ressource,
		method:        p.Method,
		requestMethod: p.RequestMethod,
	}
}

func (q Query) Project() string { return q.project }
func (q Query) Source() string { return q.source }
func (q Query) RemoteIP() string { return q.remoteIP }
func (q Query) Signature() string { return q.signature }
func (q Query) Ressource() string { return q.ressource }
func (q Query) Method() string { return q.method }
func (q Query) RequestMethod() string { return q.requestMethod }

// Arguments returns a copy of the request arguments.
func (q Query) Arguments() map[string]string {
	return copyArguments(q.arguments)
}

// Argument returns one argument value.
func (q Query) Argument(name string) (string, bool) {
	v, ok := q.arguments[name]
	return v, ok
}

// ArgumentNames returns the argument names, sorted.
func (q Query) ArgumentNames() []string {
	names := make([]string, 0, len(q.arguments))
	for name := range q.arguments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithArguments returns a copy of q carrying args instead.
func (q Query) WithArguments(args map[string]string) Query {
	q.arguments = copyArguments(args)
	return q
}

// FunctionName is the plugin entry point targeted by the query.
func (q Query) FunctionName() string {
	return q.ressource + "_" + q.method
}

// String renders the query for logs. The signature is not included.
func (q Query) String() string {
	return fmt.Sprintf("project:%s,source:%s,ip:%s,args:%v,ressource:%s,method:%s,request_method:%s",
		q.project, q.source, q.remoteIP, q.ArgumentNames(), q.ressource, q.method, q.requestMethod)
}

func copyArguments(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
