package ai

import (
	"fmt"
	"sort"
	"strings"
)

// maxCurvePoints caps the portfolio curve rows sent to the model.
const maxCurvePoints = 40

const systemPrompt = `Ты — количественный аналитик фондового рынка.
Тебе дан результат бэктеста событийной стратегии: покупка акции в день гэпа вверх
после публикации отчётности (минимум первой сессии выше максимума предыдущей)
при сильном росте прибыли год к году, удержание фиксированное число календарных дней,
равные веса по позициям, открытым в один день.

Тебе предоставлены:
- Правило отбора и горизонт удержания
- Сводка: число позиций, исключения, итоговая доходность, бенчмарк, win rate
- Кривая доходности портфеля по датам покупки
- Лучшие и худшие позиции

Правила:
1. Оцени, есть ли у стратегии преимущество над бенчмарком.
2. Укажи, на чём держится результат (концентрация по датам, отдельные выбросы).
3. Перечисли риски интерпретации: мало наблюдений, выжившие, пропуски цен.
4. Не выдумывай данные, которых нет во входе.

Ответ строго в JSON:
{
  "verdict": "Краткий вывод в 1-3 предложениях",
  "highlights": ["..."],
  "risks": ["..."]
}`

func BuildUserPrompt(req *CommentaryRequest) string {
	var sb strings.Builder
	s := req.Summary

	sb.WriteString("## Стратегия\n")
	sb.WriteString(fmt.Sprintf("Правило отбора: %s\n", req.Strategy))
	sb.WriteString(fmt.Sprintf("Удержание: %d дней\n", req.HoldingDays))
	if req.Benchmark != "" {
		sb.WriteString(fmt.Sprintf("Бенчмарк: %s\n", req.Benchmark))
	}
	sb.WriteString("\n")

	sb.WriteString("## Сводка\n")
	sb.WriteString(fmt.Sprintf("Гэпов: %d, отобрано: %d\n", req.GapEvents, req.Selected))
	sb.WriteString(fmt.Sprintf("Позиций: %d, с ценой: %d, периодов: %d\n", s.Positions, s.Priced, s.Periods))
	if len(s.Exclusions) > 0 {
		reasons := make([]string, 0, len(s.Exclusions))
		for k, v := range s.Exclusions {
			reasons = append(reasons, fmt.Sprintf("%s=%d", k, v))
		}
		sort.Strings(reasons)
		sb.WriteString(fmt.Sprintf("Исключено: %s\n", strings.Join(reasons, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Итоговая доходность: %+.2f%%\n", s.CumulativeReturn*100))
	if s.BenchmarkCumulative != nil {
		sb.WriteString(fmt.Sprintf("Бенчмарк: %+.2f%%\n", *s.BenchmarkCumulative*100))
	}
	sb.WriteString(fmt.Sprintf("Win rate: %.1f%%, средняя позиция: %+.2f%%\n\n", s.WinRate*100, s.MeanPositionReturn*100))

	if len(req.Curve) > 0 {
		curve := req.Curve
		if len(curve) > maxCurvePoints {
			curve = curve[len(curve)-maxCurvePoints:]
			sb.WriteString(fmt.Sprintf("## Кривая доходности (последние %d из %d)\n", maxCurvePoints, len(req.Curve)))
		} else {
			sb.WriteString("## Кривая доходности\n")
		}
		sb.WriteString("| Дата | Позиций | Доходность% | Накоплено% | Бенчмарк% |\n")
		sb.WriteString("|------|---------|-------------|------------|-----------|\n")
		for _, p := range curve {
			bench := "—"
			if p.BenchmarkCumulative != nil {
				bench = fmt.Sprintf("%+.2f", *p.BenchmarkCumulative*100)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %+.2f | %+.2f | %s |\n",
				p.BuyDate.Format("2006-01-02"), p.Positions, p.MeanReturn*100, p.CumulativeReturn*100, bench))
		}
		sb.WriteString("\n")
	}

	best, worst := extremes(req, 5)
	if len(best) > 0 {
		sb.WriteString("## Лучшие позиции\n")
		for _, p := range best {
			sb.WriteString(fmt.Sprintf("- %s %s: %+.2f%%\n", p.code, p.date, p.ret*100))
		}
		sb.WriteString("## Худшие позиции\n")
		for _, p := range worst {
			sb.WriteString(fmt.Sprintf("- %s %s: %+.2f%%\n", p.code, p.date, p.ret*100))
		}
	}

	sb.WriteString("\nПрокомментируй результат в JSON.")

	return sb.String()
}

type ranked struct {
	code string
	date string
	ret  float64
}

func extremes(req *CommentaryRequest, n int) (best, worst []ranked) {
	var all []ranked
	for _, p := range req.Positions {
		if p.Return == nil {
			continue
		}
		all = append(all, ranked{code: p.Code, date: p.BuyDate.Format("2006-01-02"), ret: *p.Return})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ret > all[j].ret })
	if len(all) < n {
		n = len(all)
	}
	best = all[:n]
	for i := len(all) - 1; i >= len(all)-n; i-- {
		worst = append(worst, all[i])
	}
	return best, worst
}
