package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/transport"
)

var (
	inferenceFile string
	uploadType    string
	trainingParam map[string]string
	logsLimit     int
)

var inferenceCmd = &cobra.Command{
	Use:   "inference",
	Short: "Run the backend's anomaly detection",
}

var inferenceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger an inference run, optionally on a capture file",
	RunE:  runInference,
}

var inferenceResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print the latest inference output",
	RunE:  runInferenceResults,
}

var inferenceUploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a data file for analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var trainingCmd = &cobra.Command{
	Use:   "training",
	Short: "Manage model retraining",
}

var trainingStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a retraining run",
	RunE:  runTrainingStart,
}

var trainingStatusCmd = &cobra.Command{
	Use:   "status JOB_ID",
	Short: "Show a retraining run's state",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrainingStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print backend log lines",
	RunE:  runLogs,
}

func init() {
	inferenceRunCmd.Flags().StringVarP(&inferenceFile, "file", "f", "", "Capture file to analyze")
	inferenceUploadCmd.Flags().StringVar(&uploadType, "type", "network_logs", "Data type of the file")
	trainingStartCmd.Flags().StringToStringVarP(&trainingParam, "param", "p", nil, "Training parameter key=value")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "Maximum lines (0 for the backend default)")
	logsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print raw JSON")

	inferenceCmd.AddCommand(inferenceRunCmd)
	inferenceCmd.AddCommand(inferenceResultsCmd)
	inferenceCmd.AddCommand(inferenceUploadCmd)
	trainingCmd.AddCommand(trainingStartCmd)
	trainingCmd.AddCommand(trainingStatusCmd)
}

func openPart(path string) (*transport.FilePart, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &transport.FilePart{FileName: filepath.Base(path), Content: f}, func() { f.Close() }, nil
}

func runInference(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	var part *transport.FilePart
	if inferenceFile != "" {
		p, closeFn, err := openPart(inferenceFile)
		if err != nil {
			return err
		}
		defer closeFn()
		part = p
	}

	out, err := svc.RunInference(ctx, part)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runInferenceResults(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	out := svc.GetLatestResults(ctx)
	if out == nil {
		fmt.Println("No inference results available")
		return nil
	}
	return printJSON(out)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	part, closeFn, err := openPart(args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	out, err := svc.UploadData(ctx, *part, uploadType)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runTrainingStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	params := make(map[string]any, len(trainingParam))
	for k, v := range trainingParam {
		params[k] = v
	}

	job, err := svc.StartTraining(ctx, params)
	if err != nil {
		return err
	}
	printTitle("Training started")
	printField("Job:", job.ID)
	printField("Status:", job.Status)
	return nil
}

func runTrainingStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	job := svc.GetTrainingStatus(ctx, args[0])
	printTitle("Training " + job.ID)
	printField("Status:", job.Status)
	if job.Progress != nil {
		printField("Progress:", fmt.Sprintf("%.0f%%", *job.Progress))
	}
	if job.Message != "" {
		printField("Message:", job.Message)
	}
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	lines := svc.GetLogs(ctx, logsLimit)
	if jsonOutput {
		return printJSON(lines)
	}
	for _, l := range lines {
		prefix := ""
		if l.Timestamp != "" {
			prefix = labelStyle.Render(l.Timestamp) + " "
		}
		if l.Level != "" {
			prefix += valueStyle.Render(fmt.Sprintf("%-5s", l.Level)) + " "
		}
		fmt.Println(prefix + l.Message)
	}
	return nil
}
