package main

import (
	"bytes"
	"fmt"
	"os"

	"succession/internal/plan"
	"succession/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// employeesCmd groups directory commands
var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "Search and import the employee directory",
}

var employeesSearchCmd = &cobra.Command{
	Use:   "search LAST_NAME",
	Short: "Find employees by (part of) their last name",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmployeesSearch,
}

var employeesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Upsert employees from a YAML or JSON list",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmployeesImport,
}

// plansCmd groups stored plan commands
var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Save plans and prefill new ones from history",
}

var plansSaveCmd = &cobra.Command{
	Use:   "save FILE",
	Short: "Store a plan file, one row per successor",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansSave,
}

var plansPrefillCmd = &cobra.Command{
	Use:   "prefill INCUMBENT_ID [SUCCESSOR_ID...]",
	Short: "Print the latest stored values as YAML",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlansPrefill,
}

func init() {
	employeesCmd.AddCommand(employeesSearchCmd)
	employeesCmd.AddCommand(employeesImportCmd)
	plansCmd.AddCommand(plansSaveCmd)
	plansCmd.AddCommand(plansPrefillCmd)
}

func openStore() (*store.LocalStore, error) {
	return store.NewLocalStore(cfg.Database.Path)
}

func runEmployeesSearch(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	people, err := st.SearchEmployees(args[0], cfg.Database.SearchLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderPeople(people))
	return nil
}

func runEmployeesImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read employees: %w", err)
	}
	var people []plan.Person
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&people); err != nil {
		return fmt.Errorf("failed to parse employees: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ImportEmployees(people)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("imported %d employees", n)))
	return nil
}

func runPlansSave(cmd *cobra.Command, args []string) error {
	in, err := plan.LoadFile(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ids, err := st.SavePlan(*in)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("saved %d rows for %s", len(ids), in.Incumbent.Person.FullName())))
	for i, id := range ids {
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("%s → %s", in.Successors[i].Person.FullName(), mutedStyle.Render(id))))
	}
	return nil
}

// prefill is the YAML shape printed by plans prefill.
type prefill struct {
	PlanDetails *plan.IncumbentPlan                  `yaml:"plan_details,omitempty"`
	Assessments map[string]*plan.SuccessorAssessment `yaml:"assessments,omitempty"`
}

func runPlansPrefill(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	inc, assessments, err := st.Prefill(args[0], args[1:])
	if err != nil {
		return err
	}
	if inc == nil && len(assessments) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no stored history"))
		return nil
	}
	out, err := yaml.Marshal(prefill{PlanDetails: inc, Assessments: assessments})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
