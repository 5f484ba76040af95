package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zakimal/zero-chain-ui/internal/service"
)

var walletPhrase string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "管理本地账户",
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "生成新的助记词 (不保存)",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		wallet := mustWallet(rt)
		phrase, id, err := wallet.Generate()
		if err != nil {
			fmt.Printf("生成助记词失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("---------------------------------------------------")
		fmt.Printf("助记词 (Mnemonic): \n%s\n", phrase)
		fmt.Println("---------------------------------------------------")
		fmt.Printf("地址: %s\n", id)
		fmt.Println("使用 'wallet add <name>' 保存该账户。请妥善保管您的助记词！")
	},
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "导入助记词或开发用 URI (例如 //Alice) 并加密保存",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		phrase := walletPhrase
		if phrase == "" {
			var err error
			if phrase, err = readPhrase(); err != nil {
				fmt.Printf("读取助记词失败: %v\n", err)
				os.Exit(1)
			}
		}
		acc, err := mustWallet(rt).Import(phrase, args[0])
		if err != nil {
			fmt.Printf("保存账户失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ 账户 %s 已保存: %s\n", acc.Name, acc.Address)
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出本地账户",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		accounts := mustWallet(rt).List()
		if len(accounts) == 0 {
			fmt.Println("还没有账户，使用 'wallet add <name>' 导入")
			return
		}
		for _, acc := range accounts {
			fmt.Printf("%-16s %s\n", acc.Name, acc.Address)
		}
	},
}

var walletForgetCmd = &cobra.Command{
	Use:   "forget <name>",
	Short: "删除本地账户 (链上资产不受影响，但没有助记词将无法找回)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		if err := mustWallet(rt).Forget(args[0]); err != nil {
			fmt.Printf("删除账户失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("账户 %s 已删除\n", args[0])
	},
}

func mustWallet(rt *runtime) *service.WalletService {
	store, err := rt.secretStore()
	if err != nil {
		fmt.Printf("打开钱包失败: %v\n", err)
		os.Exit(1)
	}
	return service.NewWalletService(store)
}

// readPhrase 终端中不回显，管道输入时读取第一行
func readPhrase() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprint(os.Stderr, "输入助记词: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		return string(raw), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	walletAddCmd.Flags().StringVar(&walletPhrase, "phrase", "", "助记词，不指定时从终端读取")
	walletCmd.AddCommand(walletNewCmd, walletAddCmd, walletListCmd, walletForgetCmd)
	rootCmd.AddCommand(walletCmd)
}
