package auth_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/storeadmin/auth"
	"github.com/jonwraymond/storeadmin/form"
)

func ExampleSession_Login() {
	session := auth.NewSession(auth.NewCompositeAuthenticator())

	_, err := session.Login(context.Background(), form.Login{Email: "admin@shop.test"})

	var ve *form.ValidationError
	if errors.As(err, &ve) {
		msg, _ := ve.Message("password")
		fmt.Println(msg)
	}
	// Output: password is required
}

func ExampleRegistry_Authenticators() {
	auths, err := auth.DefaultRegistry.Authenticators(map[string]map[string]any{
		"github": {"token": "gh-token", "subject": "octocat"},
	}, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	session := auth.NewSession(auth.NewCompositeAuthenticator(auths...))

	id, err := session.LoginProvider(context.Background(), "github")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(id.Principal, id.Provider)
	// Output: octocat github
}
