package main

import (
	"fmt"
	"strings"

	"github.com/bit2swaz/dbflood/internal/adapter"
	"github.com/spf13/cobra"
)

var ddlCmd = &cobra.Command{
	Use:   "ddl <db-type>",
	Short: "Print the load_test schema DDL for a database type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ad, err := adapter.New(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("DDL for %s\n", strings.ToUpper(args[0]))
		fmt.Println(ad.DDL())
		return nil
	},
}
