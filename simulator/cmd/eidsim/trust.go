// Copyright 2026 eidsim contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/eidsim/eidsim/pkg/cvc"
	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/private/storage/trust/sqlite"
	"github.com/eidsim/eidsim/private/trust"
)

func newTrust() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Inspect the trust point database",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newTrustList())
	return cmd
}

func newTrustList() *cobra.Command {
	var flags struct {
		db string
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored trust points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if flags.db == "" {
				return serrors.New("no trust database given")
			}
			db, err := sqlite.New(flags.db)
			if err != nil {
				return err
			}
			defer db.Close()
			points, err := db.Points(context.Background())
			if err != nil {
				return err
			}
			printPoints(points)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.db, "db", "", "Trust database file (required)")
	return cmd
}

func printPoints(points map[cvc.TerminalType]trust.Point) {
	types := make([]cvc.TerminalType, 0, len(points))
	for tt := range points {
		types = append(types, tt)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})

	var rows [][]string
	row := func(tt cvc.TerminalType, slot string, cert *cvc.Certificate) []string {
		return []string{
			tt.String(),
			slot,
			cert.CHR.String(),
			cert.CAR.String(),
			cert.EffectiveDate.Format("2006-01-02"),
			cert.ExpirationDate.Format("2006-01-02"),
		}
	}
	for _, tt := range types {
		p := points[tt]
		rows = append(rows, row(tt, "current", p.Current))
		if p.Previous != nil {
			rows = append(rows, row(tt, "previous", p.Previous))
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Type", "Slot", "CHR", "CAR", "Effective", "Expires"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})
	table.AppendBulk(rows)
	table.Render()
}
