package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/hunkoufanchi777/SynCW/internal/pruning"
	"github.com/hunkoufanchi777/SynCW/internal/train"
)

// WriteInformation prints the kept fraction of every prunable layer and
// the overall kept fraction.
func WriteInformation(w io.Writer, info pruning.Information) error {
	t := NewTable("#", "layer", "role", "kept", "total", "ratio").
		SetAlign(0, AlignRight).SetAlign(3, AlignRight).SetAlign(4, AlignRight).SetAlign(5, AlignRight)
	for _, l := range info.Layers {
		t.AddRow(strconv.Itoa(l.Index), l.Name, l.Role.String(),
			strconv.Itoa(l.Kept), strconv.Itoa(l.Total), percent(l.Ratio()))
	}
	if info.Network != "" {
		if _, err := fmt.Fprintf(w, "network: %s\n", info.Network); err != nil {
			return err
		}
	}
	if err := t.Render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "remaining: %s\n", percent(info.Overall))
	return err
}

// WriteComparison prints nominal and effective per-layer ratios side by side.
func WriteComparison(w io.Writer, nominal pruning.Information, cmp pruning.Comparison) error {
	effective := pruning.LayerRatios(cmp.EffectiveMasks)
	t := NewTable("#", "layer", "nominal", "effective").
		SetAlign(0, AlignRight).SetAlign(2, AlignRight).SetAlign(3, AlignRight)
	for _, l := range nominal.Layers {
		eff := "-"
		if l.Index < len(effective) {
			eff = percent(effective[l.Index])
		}
		t.AddRow(strconv.Itoa(l.Index), l.Name, percent(l.Ratio()), eff)
	}
	if err := t.Render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "nominal: %s  effective: %s  coincidence: %s\n",
		percent(cmp.Nominal), percent(cmp.Effective), percent(cmp.Coincidence))
	return err
}

// WriteRounds prints the rounds of an iterative or SynFlow schedule.
func WriteRounds(w io.Writer, rounds []pruning.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	t := NewTable("round", "keep", "threshold", "kept").
		SetAlign(0, AlignRight).SetAlign(1, AlignRight).SetAlign(2, AlignRight).SetAlign(3, AlignRight)
	for i, r := range rounds {
		t.AddRow(strconv.Itoa(i+1), percent(r.KeepRatio), strconv.FormatFloat(r.Threshold, 'g', 6, 64), strconv.Itoa(r.Kept))
	}
	return t.Render(w)
}

// WriteTraining prints one row per epoch and the best test accuracy.
func WriteTraining(w io.Writer, s *train.Summary) error {
	t := NewTable("epoch", "lr", "train loss", "train acc", "test loss", "test acc")
	for i := range 6 {
		t.SetAlign(i, AlignRight)
	}
	for _, e := range s.Epochs {
		t.AddRow(strconv.Itoa(e.Epoch+1), strconv.FormatFloat(e.LR, 'g', 4, 64),
			fmt.Sprintf("%.4f", e.TrainLoss), percent(e.TrainAcc),
			fmt.Sprintf("%.4f", e.TestLoss), percent(e.TestAcc))
	}
	if err := t.Render(w); err != nil {
		return err
	}
	if s.BestEpoch < 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "best acc: %s, epoch: %d\n", percent(s.BestAcc), s.BestEpoch)
	return err
}
