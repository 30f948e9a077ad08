package mixplan

import (
	"math"
	"strconv"
	"strings"

	"mixdown/internal/presets"
	"mixdown/internal/queue"
)

// Params are the inputs to graph construction. Preset is expected to be
// already resolved through ApplyMicroAdjust.
type Params struct {
	Preset     presets.Preset
	OffsetMS   int
	TempoRatio float64
	TargetLUFS float64
	InstPolicy queue.InstPolicy
}

// Graph is a fully resolved two-stem mixing plan. Input 0 is the
// instrumental, input 1 is the vocal; the mixed output is labeled [out].
type Graph struct {
	VocalFilters []string
	InstFilters  []string
	Rescue       bool
	VocalDelayMS int
	InstDelayMS  int
	VocalWeight  float64
	InstWeight   float64
	TargetLUFS   float64
}

// BuildFilterGraph derives the filter graph for one render. A positive offset
// delays the vocal, a negative offset delays the instrumental.
func BuildFilterGraph(params Params) Graph {
	preset := params.Preset
	tempo := params.TempoRatio
	if tempo <= 0 {
		tempo = 1.0
	}

	graph := Graph{
		Rescue:      params.InstPolicy == queue.InstPolicyRescue,
		VocalWeight: preset.VocalWeight,
		InstWeight:  preset.InstWeight,
		TargetLUFS:  params.TargetLUFS,
	}
	if params.OffsetMS > 0 {
		graph.VocalDelayMS = params.OffsetMS
	} else if params.OffsetMS < 0 {
		graph.InstDelayMS = -params.OffsetMS
	}

	vocal := []string{"aresample=48000", "highpass=f=" + fnum(preset.HighpassHz)}
	if preset.LowpassHz > 0 {
		vocal = append(vocal, "lowpass=f="+fnum(preset.LowpassHz))
	}
	vocal = append(vocal,
		// deesser intensity is 0-1; the catalog stores strength on a 0-10 scale.
		"deesser=i="+fnum(preset.Deesser/10),
		"acompressor=threshold="+fnum(preset.CompThreshold)+"dB"+
			":ratio="+fnum(preset.CompRatio)+
			":attack="+fnum(preset.CompAttackMS)+
			":release="+fnum(preset.CompReleaseMS),
	)
	for _, band := range preset.EQ {
		vocal = append(vocal, "equalizer=f="+fnum(band.Freq)+
			":width_type=q:width="+fnum(band.Q)+":g="+fnum(band.Gain))
	}
	if preset.ReverbMix > 0 && preset.ReverbDecay > 0 {
		delayMS := int(math.Round(preset.ReverbDecay * 100))
		if delayMS < 1 {
			delayMS = 1
		}
		vocal = append(vocal, "aecho=0.8:"+fnum(preset.ReverbMix)+":"+
			strconv.Itoa(delayMS)+":"+fnum(preset.ReverbMix*0.6))
	}
	if tempo != 1.0 {
		vocal = append(vocal, "atempo="+fnum(tempo))
	}
	if graph.VocalDelayMS > 0 {
		d := strconv.Itoa(graph.VocalDelayMS)
		vocal = append(vocal, "adelay="+d+"|"+d)
	}
	graph.VocalFilters = vocal

	inst := []string{"aresample=48000"}
	if graph.InstDelayMS > 0 {
		d := strconv.Itoa(graph.InstDelayMS)
		inst = append(inst, "adelay="+d+"|"+d)
	}
	graph.InstFilters = inst

	return graph
}

// FilterComplex renders the graph as an ffmpeg filter_complex expression.
// Identical graphs render byte-identical strings.
func (g Graph) FilterComplex() string {
	var b strings.Builder

	b.WriteString("[1:a]")
	b.WriteString(strings.Join(g.VocalFilters, ","))
	b.WriteString("[v];")

	vocalMix := "[v]"
	if g.Rescue {
		// The rescue compressor keys off the vocal, so split it before use.
		b.WriteString("[v]asplit=2[vmix][vkey];")
		vocalMix = "[vmix]"
	}

	b.WriteString("[0:a]")
	b.WriteString(strings.Join(g.InstFilters, ","))
	if g.Rescue {
		b.WriteString("[im];[im][vkey]sidechaincompress=threshold=-14dB:ratio=1.3:attack=10:release=120:makeup=0[i];")
	} else {
		b.WriteString("[i];")
	}

	b.WriteString("[i]")
	b.WriteString(vocalMix)
	b.WriteString("amix=inputs=2:weights=")
	b.WriteString(fnum(g.InstWeight))
	b.WriteString(" ")
	b.WriteString(fnum(g.VocalWeight))
	b.WriteString("[mix];")

	b.WriteString("[mix]loudnorm=I=")
	b.WriteString(fnum(g.TargetLUFS))
	b.WriteString(":TP=-1.2:LRA=11[out]")

	return b.String()
}

// fnum formats a float deterministically, trimming binary noise past six
// decimal places.
func fnum(v float64) string {
	rounded := math.Round(v*1e6) / 1e6
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
