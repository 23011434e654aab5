package pipeline

// StepInfo summarizes one pipeline step for inspection output.
type StepInfo struct {
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Transformers []TransformerInfo `json:"transformers,omitempty"`
	Classes      []int             `json:"classes,omitempty"`
	NumFeatures  int               `json:"n_features,omitempty"`
}

type TransformerInfo struct {
	Name       string              `json:"name"`
	Columns    []string            `json:"columns"`
	Operators  []string            `json:"operators"`
	Categories map[string][]string `json:"categories,omitempty"`
}

// Describe lists the steps of the pipeline in order.
func (p *Pipeline) Describe() []StepInfo {
	infos := make([]StepInfo, 0, len(p.steps))
	for i, s := range p.steps {
		info := StepInfo{Name: s.name, Type: s.kind}
		switch {
		case i == len(p.steps)-1:
			info.Classes = p.classifier.Classes()
			info.NumFeatures = p.classifier.NumFeatures()
		case s.kind == TypeColumnTransformer:
			for _, t := range p.preprocess.Transformers {
				ti := TransformerInfo{Name: t.Name, Columns: t.Columns}
				for _, op := range t.Steps {
					ti.Operators = append(ti.Operators, op.Type())
				}
				if enc := t.encoder(); enc != nil {
					ti.Categories = make(map[string][]string, len(t.Columns))
					for j, col := range t.Columns {
						if j < len(enc.Categories) {
							ti.Categories[col] = enc.Categories[j]
						}
					}
				}
				info.Transformers = append(info.Transformers, ti)
			}
		}
		infos = append(infos, info)
	}
	return infos
}
