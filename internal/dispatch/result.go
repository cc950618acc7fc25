package dispatch

// Aggregation selects how several outcomes of one plugin are reported.
type Aggregation string

const (
	// AggregateLast keeps only the last data and the last error per plugin.
	AggregateLast Aggregation = "last"
	// AggregateAll also keeps every outcome per plugin in History.
	AggregateAll Aggregation = "all"
)

// ErrorRecord describes one failed plugin call.
type ErrorRecord struct {
	Source          string            `json:"source"`
	Ressource       string            `json:"ressource"`
	Method          string            `json:"method"`
	Arguments       map[string]string `json:"arguments"`
	ParametersIndex int               `json:"parameters_index"`
	ErrorKind       string            `json:"error"`
	ErrorMessage    string            `json:"error_message"`
}

// Outcome is the result of one (plugin, parameter set) call.
type Outcome struct {
	ParametersIndex int          `json:"parameters_index"`
	Data            interface{}  `json:"data,omitempty"`
	Error           *ErrorRecord `json:"error,omitempty"`
}

// Result holds the merged outcome of a dispatch. Data and Errors are keyed
// by the plugin name as configured, alias included.
type Result struct {
	Data    map[string]interface{} `json:"data"`
	Errors  map[string]ErrorRecord `json:"errors"`
	History map[string][]Outcome   `json:"history,omitempty"`
}

func newResult(aggregation Aggregation) *Result {
	r := &Result{
		Data:   map[string]interface{}{},
		Errors: map[string]ErrorRecord{},
	}
	if aggregation == AggregateAll {
		r.History = map[string][]Outcome{}
	}
	return r
}

// record folds one outcome. Later outcomes overwrite earlier ones.
func (r *Result) record(alias string, o Outcome) {
	if o.Error != nil {
		r.Errors[alias] = *o.Error
	} else if o.Data != nil {
		r.Data[alias] = o.Data
	} else {
		return
	}
	if r.History != nil {
		r.History[alias] = append(r.History[alias], o)
	}
}

// Empty reports whether no plugin contributed anything.
func (r *Result) Empty() bool {
	return len(r.Data) == 0 && len(r.Errors) == 0
}
