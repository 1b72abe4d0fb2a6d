// =============================================================================
// Sales Aggregator - Main Entry Point
// =============================================================================
//
// USAGE:
//   calcsales <dir>            - Aggregate the sales directory <dir>
//   calcsales validate <dir>   - Check <dir> without writing any file
//   calcsales version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Loading, validation, aggregation and output
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/2507-taguchi-keita/CalculateSales/cmd"
)

func main() {
	cmd.Execute()
}
