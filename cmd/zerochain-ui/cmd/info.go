package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zakimal/zero-chain-ui/internal/service"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "显示节点信息",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		client, err := rt.chain(cmd.Context())
		if err != nil {
			fmt.Printf("连接节点失败: %v\n", err)
			os.Exit(1)
		}
		info, err := service.NewSystemService(client).Info(cmd.Context())
		if err != nil {
			fmt.Printf("查询节点信息失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("---------------------------------------------------")
		fmt.Printf("节点:     %s v%s\n", info.Name, info.Version)
		fmt.Printf("链:       %s\n", info.Chain)
		fmt.Printf("Runtime:  %s/%d (%s/%d)\n", info.Runtime.SpecName, info.Runtime.SpecVersion, info.Runtime.ImplName, info.Runtime.ImplVersion)
		fmt.Printf("高度:     %d\n", info.Height)
		fmt.Printf("出块节点: %s\n", strings.Join(info.Authorities, ", "))
		fmt.Println("---------------------------------------------------")
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
