package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/hmclab/hamgeo/config"
	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
	"github.com/hmclab/hamgeo/model"
	"github.com/hmclab/hamgeo/system"
)

var (
	configFile string
	preset     string
	posStr     string
	momStr     string
	seed       int64
	// Scan parameters
	scanAxis   int
	scanFrom   float64
	scanTo     float64
	scanPoints int
	// Gradient check parameters
	checkTol  float64
	checkStep float64
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Width(22)
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hamgeo",
		Short: "Hamiltonian system evaluation lab",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "gaussian", "named preset")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", config.DefaultSeed, "RNG seed")

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "evaluate energies and gradients at a point",
		RunE:  runEval,
	}
	evalCmd.Flags().StringVar(&posStr, "pos", "1.0,2.0", "position vector (comma separated)")
	evalCmd.Flags().StringVar(&momStr, "mom", "", "momentum vector (empty: sample one)")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "plot potential energy along one axis",
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&posStr, "pos", "0,0", "base position")
	scanCmd.Flags().IntVar(&scanAxis, "axis", 0, "axis to scan")
	scanCmd.Flags().Float64Var(&scanFrom, "from", -3.0, "scan start")
	scanCmd.Flags().Float64Var(&scanTo, "to", 3.0, "scan end")
	scanCmd.Flags().IntVar(&scanPoints, "points", 80, "scan resolution")

	checkCmd := &cobra.Command{
		Use:   "checkgrad",
		Short: "check dh/dpos and dh/dmom against finite differences of h",
		RunE:  runCheckGrad,
	}
	checkCmd.Flags().StringVar(&posStr, "pos", "0.9,1.1", "position vector")
	checkCmd.Flags().StringVar(&momStr, "mom", "0.5,-0.5", "momentum vector")
	checkCmd.Flags().Float64Var(&checkTol, "tol", 1e-5, "max allowed abs error")
	checkCmd.Flags().Float64Var(&checkStep, "step", 1e-6, "finite difference step")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list named presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(evalCmd, scanCmd, checkCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q", preset)
	}
	return cfg, nil
}

func buildTarget(cfg *config.Config) (model.Target, error) {
	switch cfg.Target.Name {
	case "gaussian":
		return model.StandardGaussian{}, nil
	case "correlated_gaussian":
		return model.NewGaussian(symFromRows(cfg.Target.Covariance))
	case "rosenbrock":
		r := model.NewRosenbrock()
		if cfg.Target.A != 0 {
			r.A = cfg.Target.A
		}
		if cfg.Target.B != 0 {
			r.B = cfg.Target.B
		}
		return r, nil
	case "doublewell":
		d := model.NewDoubleWell()
		if cfg.Target.A != 0 {
			d.A = cfg.Target.A
		}
		if cfg.Target.B != 0 {
			d.B = cfg.Target.B
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown target %q", cfg.Target.Name)
	}
}

func buildSystem(cfg *config.Config, target model.Target) (ham.System, error) {
	opts := &system.EuclideanOptions{
		GradPotEnergy:  target.GradPotEnergy,
		Differentiator: diff.NewNumeric(),
	}
	switch cfg.System.Kind {
	case "isotropic":
		return system.NewIsotropicEuclidean(target.PotEnergy, opts)
	case "diagonal":
		if len(cfg.System.MetricDiagonal) > 0 {
			return system.NewDiagonalEuclidean(target.PotEnergy, cfg.System.MetricDiagonal, opts)
		}
		metric := system.NewDiagonalMetricFromMatrix(symFromRows(cfg.System.Metric))
		return system.NewEuclidean(target.PotEnergy, metric, opts)
	case "dense":
		return system.NewDenseEuclidean(target.PotEnergy, symFromRows(cfg.System.Metric), opts)
	case "softabs":
		saOpts := &system.SoftAbsOptions{
			GradPotEnergy:  target.GradPotEnergy,
			Differentiator: diff.NewNumeric(),
		}
		if ht, ok := target.(model.HessianTarget); ok {
			saOpts.HessPotEnergy = ht.HessPotEnergy
		}
		return system.NewSoftAbsRiemannian(target.PotEnergy, cfg.System.SoftAbsCoeff, saOpts)
	default:
		return nil, fmt.Errorf("unknown system kind %q", cfg.System.Kind)
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target, err := buildTarget(cfg)
	if err != nil {
		return err
	}
	sys, err := buildSystem(cfg, target)
	if err != nil {
		return err
	}

	pos, err := parseVec(posStr)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1))

	var mom ham.Vector
	state := ham.NewState(pos, make(ham.Vector, len(pos)))
	if momStr != "" {
		if mom, err = parseVec(momStr); err != nil {
			return err
		}
	} else {
		if mom, err = sys.SampleMomentum(state, rng); err != nil {
			return err
		}
	}
	state.SetMom(mom)

	fmt.Println(headerStyle.Render(fmt.Sprintf("%s / %s", cfg.System.Kind, cfg.Target.Name)))
	printVec("position", pos)
	printVec("momentum", mom)

	if ee, ok := sys.(ham.EnergyEvaluable); ok {
		pot, err := ee.PotEnergy(state)
		if err != nil {
			return err
		}
		printVal("pot energy", pot)
	}
	h, err := sys.H(state)
	if err != nil {
		return err
	}
	printVal("h", h)

	dhdp, err := sys.DhDPos(state)
	if err != nil {
		return err
	}
	printVec("dh/dpos", dhdp)
	dhdm, err := sys.DhDMom(state)
	if err != nil {
		return err
	}
	printVec("dh/dmom", dhdm)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target, err := buildTarget(cfg)
	if err != nil {
		return err
	}
	base, err := parseVec(posStr)
	if err != nil {
		return err
	}
	if scanAxis < 0 || scanAxis >= len(base) {
		return fmt.Errorf("axis %d out of range for %d-dimensional position", scanAxis, len(base))
	}

	values := make([]float64, scanPoints)
	p := base.Clone()
	for i := 0; i < scanPoints; i++ {
		p[scanAxis] = scanFrom + (scanTo-scanFrom)*float64(i)/float64(scanPoints-1)
		values[i] = target.PotEnergy(p)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("pot energy of %s along axis %d", cfg.Target.Name, scanAxis)))
	fmt.Println(asciigraph.Plot(values, asciigraph.Height(16), asciigraph.Width(72)))
	return nil
}

func runCheckGrad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target, err := buildTarget(cfg)
	if err != nil {
		return err
	}
	sys, err := buildSystem(cfg, target)
	if err != nil {
		return err
	}

	pos, err := parseVec(posStr)
	if err != nil {
		return err
	}
	mom, err := parseVec(momStr)
	if err != nil {
		return err
	}
	state := ham.NewState(pos, mom)

	dhdp, err := sys.DhDPos(state)
	if err != nil {
		return err
	}
	dhdm, err := sys.DhDMom(state)
	if err != nil {
		return err
	}

	maxErr := 0.0
	for i := range pos {
		fd, err := centralDiff(sys, state, pos, mom, i, true)
		if err != nil {
			return err
		}
		maxErr = math.Max(maxErr, math.Abs(fd-dhdp[i]))
	}
	for i := range mom {
		fd, err := centralDiff(sys, state, pos, mom, i, false)
		if err != nil {
			return err
		}
		maxErr = math.Max(maxErr, math.Abs(fd-dhdm[i]))
	}

	printVal("max abs error", maxErr)
	if maxErr > checkTol {
		return fmt.Errorf("gradient check failed: %.3e > %.3e", maxErr, checkTol)
	}
	fmt.Println(headerStyle.Render("gradients consistent"))
	return nil
}

func centralDiff(sys ham.System, s *ham.State, pos, mom ham.Vector, i int, onPos bool) (float64, error) {
	perturb := func(delta float64) (float64, error) {
		if onPos {
			p := pos.Clone()
			p[i] += delta
			s.SetPos(p)
			defer s.SetPos(pos)
		} else {
			m := mom.Clone()
			m[i] += delta
			s.SetMom(m)
			defer s.SetMom(mom)
		}
		return sys.H(s)
	}
	hp, err := perturb(checkStep)
	if err != nil {
		return 0, err
	}
	hm, err := perturb(-checkStep)
	if err != nil {
		return 0, err
	}
	return (hp - hm) / (2 * checkStep), nil
}

func parseVec(s string) (ham.Vector, error) {
	parts := strings.Split(s, ",")
	v := make(ham.Vector, 0, len(parts))
	for _, part := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad vector component %q: %w", part, err)
		}
		v = append(v, x)
	}
	return v, nil
}

func symFromRows(rows [][]float64) *mat.SymDense {
	n := len(rows)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, rows[i][j])
		}
	}
	return sym
}

func printVec(label string, v ham.Vector) {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	fmt.Printf("%s [%s]\n", labelStyle.Render(label), strings.Join(parts, ", "))
}

func printVal(label string, v float64) {
	fmt.Printf("%s %.6g\n", labelStyle.Render(label), v)
}
