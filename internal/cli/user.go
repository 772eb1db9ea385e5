package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"eating-management/backend/internal/model"
	pkgerrors "eating-management/backend/pkg/errors"
)

type userCreateOptions struct {
	Username string
	FullName string
	Email    string
	Phone    string
	Role     string
	Password string
	Inactive bool
}

// NewUserCommand 用户管理
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "用户管理",
	}
	cmd.AddCommand(newUserCreateCommand(rootOpts))
	return cmd
}

func newUserCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &userCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "创建用户（成员、厨房或管理员）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			e, err := rootOpts.open(false)
			if err != nil {
				return err
			}
			defer e.close()

			hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("密码加密失败: %w", err)
			}
			u := &model.User{
				Username:     opts.Username,
				FullName:     opts.FullName,
				Email:        opts.Email,
				Phone:        opts.Phone,
				PasswordHash: string(hash),
				Role:         opts.Role,
				IsActive:     !opts.Inactive,
			}
			if err := e.repo().User.Create(cmd.Context(), u); err != nil {
				if errors.Is(err, pkgerrors.ErrDuplicateKey) {
					return fmt.Errorf("用户名 %s 已存在", opts.Username)
				}
				return fmt.Errorf("创建用户失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已创建用户 %s (%s, %s)\n", u.Username, u.ID, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "登录名（必填）")
	cmd.Flags().StringVar(&opts.FullName, "full-name", "", "姓名（必填）")
	cmd.Flags().StringVar(&opts.Email, "email", "", "邮箱")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "电话")
	cmd.Flags().StringVar(&opts.Role, "role", model.RoleMember, "角色 member|kitchen|admin")
	cmd.Flags().StringVar(&opts.Password, "password", "", "初始密码（至少 8 位）")
	cmd.Flags().BoolVar(&opts.Inactive, "inactive", false, "创建为停用状态")

	return cmd
}

func (o *userCreateOptions) validate() error {
	if o.Username == "" || o.FullName == "" {
		return errors.New("--username 与 --full-name 不能为空")
	}
	if len(o.Password) < 8 {
		return errors.New("--password 至少 8 位")
	}
	switch o.Role {
	case model.RoleMember, model.RoleKitchen, model.RoleAdmin:
		return nil
	}
	return fmt.Errorf("未知角色 %q", o.Role)
}
