package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zakimal/zero-chain-ui/internal/service"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address|name>",
	Short: "查询账户余额与 nonce，本地账户同时解密机密余额",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()
		ctx := cmd.Context()

		client, err := rt.chain(ctx)
		if err != nil {
			fmt.Printf("连接节点失败: %v\n", err)
			os.Exit(1)
		}
		wallet := mustWallet(rt)
		engine, err := rt.crypto()
		if err != nil {
			fmt.Printf("初始化解密失败: %v\n", err)
			os.Exit(1)
		}

		target := args[0]
		if id, err := wallet.Resolve(target); err == nil {
			target = id.String()
		}
		accounts := service.NewAccountService(client, wallet.Store(), engine, nil, 0)
		info, err := accounts.Lookup(ctx, target)
		if err != nil {
			fmt.Printf("查询失败: %v\n", err)
			os.Exit(1)
		}

		u := rt.units()
		fmt.Println("---------------------------------------------------")
		fmt.Printf("地址:     %s\n", info.Address)
		fmt.Printf("余额:     %s\n", u.Format(info.Balance))
		fmt.Printf("Nonce:    %d\n", info.Nonce)
		fmt.Printf("加密余额: %s\n", info.EncryptedBalance)
		if info.DecryptedBalance != nil {
			fmt.Printf("机密余额: %s\n", u.Format(*info.DecryptedBalance))
		} else {
			fmt.Println("机密余额: (不是本地账户，无法解密)")
		}
		fmt.Println("---------------------------------------------------")
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
