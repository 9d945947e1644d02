package backtest

type Summary struct {
	Positions           int            `json:"positions"`
	Priced              int            `json:"priced"`
	Exclusions          map[string]int `json:"exclusions,omitempty"`
	Periods             int            `json:"periods"`
	CumulativeReturn    float64        `json:"cumulative_return"`
	BenchmarkCumulative *float64       `json:"benchmark_cumulative,omitempty"`
	ExcessReturn        *float64       `json:"excess_return,omitempty"`
	WinRate             float64        `json:"win_rate"`
	MeanPositionReturn  float64        `json:"mean_position_return"`
}

func (r Result) Summary() Summary {
	s := Summary{
		Positions:  len(r.Positions),
		Exclusions: r.Exclusions,
		Periods:    len(r.Portfolio),
	}

	wins, total := 0, 0.0
	for _, p := range r.Positions {
		if p.Return == nil {
			continue
		}
		s.Priced++
		total += *p.Return
		if *p.Return > 0 {
			wins++
		}
	}
	if s.Priced > 0 {
		s.WinRate = float64(wins) / float64(s.Priced)
		s.MeanPositionReturn = total / float64(s.Priced)
	}

	if n := len(r.Portfolio); n > 0 {
		last := r.Portfolio[n-1]
		s.CumulativeReturn = last.CumulativeReturn
		if last.BenchmarkCumulative != nil {
			bench := *last.BenchmarkCumulative
			excess := s.CumulativeReturn - bench
			s.BenchmarkCumulative = &bench
			s.ExcessReturn = &excess
		}
	}
	return s
}
