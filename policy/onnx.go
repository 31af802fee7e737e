package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/brensch/snek8/rules"
)

// ONNXConfig names the model's tensors. The model takes a [N,8] batch of 0/1
// perception flags and returns [N,4] scores.
type ONNXConfig struct {
	InputName  string
	OutputName string
}

var DefaultONNXConfig = ONNXConfig{InputName: "input", OutputName: "q"}

var ortInitOnce sync.Once
var ortInitErr error

// CompileONNX evaluates the model once over all 256 perception states and
// returns the resulting table. The model is only read; nothing is trained.
func CompileONNX(modelPath string, cfg ONNXConfig) (*Table, error) {
	if cfg.InputName == "" {
		cfg.InputName = DefaultONNXConfig.InputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultONNXConfig.OutputName
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("stat model: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{cfg.InputName}, []string{cfg.OutputName}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Destroy()

	input := make([]float32, 0, rules.NumStates*8)
	for state := 0; state < rules.NumStates; state++ {
		f := rules.PerceptionFromIndex(state).Floats()
		input = append(input, f[:]...)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(rules.NumStates, 8), input)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(rules.NumStates, rules.NumMoves))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}

	data := outputTensor.GetData()
	if len(data) != rules.NumStates*rules.NumMoves {
		return nil, fmt.Errorf("%w: model produced %d values", ErrBadTable, len(data))
	}
	t := &Table{}
	for state := 0; state < rules.NumStates; state++ {
		copy(t[state][:], data[state*rules.NumMoves:(state+1)*rules.NumMoves])
	}
	return t, nil
}

// initORT points onnxruntime at its shared library and initializes the
// process-wide environment once.
func initORT() error {
	ortInitOnce.Do(func() {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else if runtime.GOOS == "linux" {
			cwd, _ := os.Getwd()
			candidates := []string{
				"libonnxruntime.so",
				"libonnxruntime.so.1",
			}
			for _, name := range candidates {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return fmt.Errorf("failed to init ort: %w", ortInitErr)
	}
	return nil
}
