package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/assoc/core/certification"
)

// addCertification creates a certification.Certification
func (cli *commandLine) addCertification(name, regNum string, fee, certFee int64) error {
	ctx := context.Background()
	nc := certification.NewCertification{
		Name:               name,
		RegistrationNumber: regNum,
		ApplicationFee:     fee,
		CertificateFee:     certFee,
	}
	if err := nc.Validate(ctx, cli.validate, cli.certSvc); err != nil {
		return cli.describe(err)
	}

	cert, err := cli.certSvc.Create(ctx, nc)
	if err != nil {
		return cli.describe(err)
	}
	_, _ = color.New(color.FgGreen).Fprintf(cli.out, "Created certification %q (%s)\n", cert.Name, cert.ID)
	return nil
}

// describe flattens validation errors into a single readable error.
func (cli *commandLine) describe(err error) error {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		return fmt.Errorf("%s: %s", vErrs[0].Field(), vErrs[0].Translate(cli.translator))
	}
	return err
}
